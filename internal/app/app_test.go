package app

import (
	"context"
	"testing"

	"carehub-backend/internal/config"
	"carehub-backend/internal/domain"
	"carehub-backend/internal/security"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
storage:
  type: memory
auth:
  provider: jwt
  jwt_secret: "0123456789abcdef0123456789abcdef"
payment:
  gateway_url: "http://gateway.invalid"
  merchant_code: "CAREHUB"
  secret_key: "merchant-secret"
`))
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoryStore(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	account, created, err := a.Services.Identity.CreateFirstSuperAdminIfNeeded(ctx, "root", "root@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleSuperAdmin, account.Role)

	stats, err := a.Services.Analytics.ComputeAnalytics(ctx, domain.Actor{AccountID: "root", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBookings)
}

func TestNew_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig(t)
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Services.Analytics.ComputeAnalytics(context.Background(), domain.Actor{AccountID: "root", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)
	assert.True(t, mr.Exists("carehub:analytics:platform"), "snapshot cached")
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewVerifier_JWT(t *testing.T) {
	v, err := NewVerifier(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	_, ok := v.(security.TokenManager)
	assert.True(t, ok)
}
