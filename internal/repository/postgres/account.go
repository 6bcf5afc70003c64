package postgres

import (
	"context"
	"time"

	"carehub-backend/internal/domain"
)

// bootstrapLockKey is the advisory lock taken while creating the first super admin.
const bootstrapLockKey int64 = 0x63617265687562

type accountRepository struct {
	db dbtx
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	query := `INSERT INTO accounts (id, email, role, is_approved, is_suspended, profile_complete, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, a.ID, a.Email, a.Role, a.IsApproved, a.IsSuspended, a.ProfileComplete, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Errorf(domain.ErrConflict, "account %s already exists", a.ID)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	a := &domain.Account{}
	query := `SELECT id, email, role, is_approved, is_suspended, profile_complete, created_at, updated_at FROM accounts WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Email, &a.Role, &a.IsApproved, &a.IsSuspended, &a.ProfileComplete, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

func (r *accountRepository) Update(ctx context.Context, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()
	query := `UPDATE accounts SET email=$1, role=$2, is_approved=$3, is_suspended=$4, profile_complete=$5, updated_at=$6 WHERE id=$7`
	res, err := r.db.ExecContext(ctx, query, a.Email, a.Role, a.IsApproved, a.IsSuspended, a.ProfileComplete, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return expectRow(res, "account", a.ID)
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "account", id)
}

func (r *accountRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM accounts WHERE role = $1`, role).Scan(&n)
	return n, err
}

func (r *accountRepository) LockBootstrap(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey)
	return err
}
