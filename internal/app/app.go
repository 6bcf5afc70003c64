// Package app assembles the store, adapters and services from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	httpapi "carehub-backend/internal/api/http"
	"carehub-backend/internal/cache"
	"carehub-backend/internal/config"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/migrations"
	"carehub-backend/internal/payment"
	"carehub-backend/internal/repository"
	"carehub-backend/internal/repository/memory"
	"carehub-backend/internal/repository/postgres"
	"carehub-backend/internal/security"
	"carehub-backend/internal/service"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// App holds everything a binary needs. Close releases the connections.
type App struct {
	Config   *config.Config
	Store    repository.Store
	Services httpapi.Services

	db    *sql.DB
	redis *redis.Client
}

// New connects the configured store and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var analyticsCache service.AnalyticsCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		analyticsCache = cache.NewRedisAnalyticsCache(client)
		logger.Info("Analytics cache enabled", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("Analytics cache disabled")
	}

	gateway := payment.NewFonepayClient(payment.Config{
		BaseURL:      cfg.Payment.GatewayURL,
		MerchantCode: cfg.Payment.MerchantCode,
		SecretKey:    cfg.Payment.SecretKey,
		ReturnURL:    cfg.Payment.ReturnURL,
		Timeout:      cfg.PaymentTimeout(),
		RetryCount:   cfg.Payment.RetryCount,
	})

	rate := cfg.DefaultCommissionRate()
	bookings := service.NewBookingService(a.Store, rate, service.BookingLimits{
		MinDurationHours: cfg.Booking.MinDurationHours,
		MaxDurationHours: cfg.Booking.MaxDurationHours,
	}, analyticsCache)

	a.Services = httpapi.Services{
		Identity:      service.NewIdentityService(a.Store),
		Organizations: service.NewOrganizationService(a.Store, rate, analyticsCache),
		Caregivers:    service.NewCaregiverService(a.Store, analyticsCache),
		Catalog:       service.NewCatalogService(a.Store),
		Bookings:      bookings,
		Payments:      service.NewPaymentService(a.Store, bookings, gateway, time.Duration(cfg.Payment.IntentExpiryMinutes)*time.Minute),
		Moderation:    service.NewModerationService(a.Store, time.Duration(cfg.Moderation.CascadeMaxElapsedSeconds)*time.Second),
		Analytics:     service.NewAnalyticsService(a.Store, analyticsCache, cfg.AnalyticsTTL()),
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.Storage.Type == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		a.Store = memory.NewStore()
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(cfg.GetDatabaseConnectionString()); err != nil {
			return err
		}
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	// the database may still be starting next to us
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logger.Warn("Database not reachable yet", "error", err, "retryIn", wait)
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	a.db = db
	a.Store = postgres.NewStore(db)
	return nil
}

// NewVerifier returns the bearer-token verifier for the configured provider.
func NewVerifier(ctx context.Context, cfg *config.Config) (security.Verifier, error) {
	switch cfg.Auth.Provider {
	case "firebase":
		return security.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentials)
	default:
		return security.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenExpiryMinutes)*time.Minute), nil
	}
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}
}
