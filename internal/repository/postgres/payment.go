package postgres

import (
	"context"
	"time"

	"carehub-backend/internal/domain"
)

type paymentRepository struct {
	db dbtx
}

func (r *paymentRepository) CreateIntent(ctx context.Context, p *domain.PaymentIntent) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	query := `INSERT INTO payment_intents (reference_id, booking_id, amount, status, transaction_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, p.ReferenceID, p.BookingID, p.Amount, p.Status, p.TransactionID, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *paymentRepository) GetIntent(ctx context.Context, referenceID string) (*domain.PaymentIntent, error) {
	p := &domain.PaymentIntent{}
	query := `SELECT reference_id, booking_id, amount, status, transaction_id, created_at, updated_at FROM payment_intents WHERE reference_id = $1`
	err := r.db.QueryRowContext(ctx, query, referenceID).Scan(&p.ReferenceID, &p.BookingID, &p.Amount, &p.Status, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "payment reference", referenceID)
	}
	return p, nil
}

func (r *paymentRepository) UpdateIntent(ctx context.Context, p *domain.PaymentIntent) error {
	p.UpdatedAt = time.Now().UTC()
	query := `UPDATE payment_intents SET status=$1, transaction_id=$2, updated_at=$3 WHERE reference_id=$4`
	res, err := r.db.ExecContext(ctx, query, p.Status, p.TransactionID, p.UpdatedAt, p.ReferenceID)
	if err != nil {
		return err
	}
	return expectRow(res, "payment reference", p.ReferenceID)
}

func (r *paymentRepository) ExpireIntents(ctx context.Context, issuedBefore time.Time) (int, error) {
	query := `UPDATE payment_intents SET status='expired', updated_at=$1 WHERE status='issued' AND created_at < $2`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), issuedBefore)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
