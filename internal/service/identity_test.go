package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"carehub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFirstSuperAdminIfNeeded_ConcurrentCallersCreateOne(t *testing.T) {
	f := newFixture(t)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created []string
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("principal-%d", i)
			_, ok, err := f.identity.CreateFirstSuperAdminIfNeeded(f.ctx, id, id+"@example.com")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created = append(created, id)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, created, 1)
	n, err := f.store.Accounts().CountByRole(f.ctx, domain.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := f.identity.CreateFirstSuperAdminIfNeeded(f.ctx, "late", "late@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateFirstSuperAdminIfNeeded_PromotesExistingAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.identity.RegisterAccount(f.ctx, "p-1", "p1@example.com", domain.RoleCustomer)
	require.NoError(t, err)

	account, ok, err := f.identity.CreateFirstSuperAdminIfNeeded(f.ctx, "p-1", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.RoleSuperAdmin, account.Role)
	assert.Equal(t, "p1@example.com", account.Email)
}

func TestCreateSuperAdmin_RefusesProfileOperators(t *testing.T) {
	f := newFixture(t)
	root := domain.Actor{AccountID: "root", Role: domain.RoleSuperAdmin}
	_, _, err := f.identity.CreateFirstSuperAdminIfNeeded(f.ctx, "root", "root@example.com")
	require.NoError(t, err)
	f.seedOrg("org-1", 15)
	f.seedCaregiver("cg-1", "org-1", 500)

	for _, id := range []string{"org-1", "cg-1"} {
		_, err := f.identity.CreateSuperAdmin(f.ctx, root, id, "")
		assert.True(t, errors.Is(err, domain.ErrValidation), "%s: %v", id, err)
		account, err := f.store.Accounts().GetByID(f.ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, domain.RoleSuperAdmin, account.Role)
	}

	// a caregiver account without a profile yet may still be promoted
	f.seedAccount("cg-new", domain.RoleCaregiver)
	account, err := f.identity.CreateSuperAdmin(f.ctx, root, "cg-new", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, account.Role)
}

func TestDeleteSuperAdmin(t *testing.T) {
	f := newFixture(t)
	root, _, err := f.identity.CreateFirstSuperAdminIfNeeded(f.ctx, "root", "root@example.com")
	require.NoError(t, err)
	actor := root.Actor()

	err = f.identity.DeleteSuperAdmin(f.ctx, actor, "root")
	assert.True(t, errors.Is(err, domain.ErrValidation), "the last super admin stays")

	_, err = f.identity.CreateSuperAdmin(f.ctx, actor, "second", "second@example.com")
	require.NoError(t, err)
	require.NoError(t, f.identity.DeleteSuperAdmin(f.ctx, actor, "second"))

	_, err = f.identity.CreateSuperAdmin(f.ctx, customer, "third", "")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.identity.RegisterAccount(f.ctx, "c-1", "", domain.RoleCustomer)
	require.NoError(t, err)
	err = f.identity.DeleteSuperAdmin(f.ctx, actor, "c-1")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRegisterAccount(t *testing.T) {
	f := newFixture(t)

	c, err := f.identity.RegisterAccount(f.ctx, "c-1", " c1@example.com ", domain.RoleCustomer)
	require.NoError(t, err)
	assert.True(t, c.IsApproved)
	assert.True(t, c.ProfileComplete)
	assert.Equal(t, "c1@example.com", c.Email)

	g, err := f.identity.RegisterAccount(f.ctx, "g-1", "", domain.RoleCaregiver)
	require.NoError(t, err)
	assert.False(t, g.IsApproved)

	_, err = f.identity.RegisterAccount(f.ctx, "x", "", domain.RoleSuperAdmin)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.identity.RegisterAccount(f.ctx, "x", "", domain.Role("pilot"))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.identity.RegisterAccount(f.ctx, "c-1", "", domain.RoleCustomer)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestActor(t *testing.T) {
	f := newFixture(t)

	_, err := f.identity.Actor(f.ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrProfileMissing))

	account, err := f.identity.RegisterAccount(f.ctx, "c-1", "", domain.RoleCustomer)
	require.NoError(t, err)
	actor, err := f.identity.Actor(f.ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{AccountID: "c-1", Role: domain.RoleCustomer}, actor)

	account.IsSuspended = true
	require.NoError(t, f.store.Accounts().Update(f.ctx, account))
	_, err = f.identity.Actor(f.ctx, "c-1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
