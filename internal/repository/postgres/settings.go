package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const defaultCommissionKey = "default_commission_rate"

type settingsRepository struct {
	db dbtx
}

func (r *settingsRepository) GetDefaultCommissionRate(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM platform_settings WHERE key = $1`, defaultCommissionKey).Scan(&raw)
	if err != nil {
		return decimal.Zero, notFound(err, "setting", defaultCommissionKey)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored %s is not a number: %w", defaultCommissionKey, err)
	}
	return rate, nil
}

func (r *settingsRepository) SetDefaultCommissionRate(ctx context.Context, rate decimal.Decimal, updatedBy string) error {
	query := `INSERT INTO platform_settings (key, value, updated_by, updated_at) VALUES ($1, $2, $3, $4)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query, defaultCommissionKey, rate.String(), updatedBy, time.Now().UTC())
	return err
}
