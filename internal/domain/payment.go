package domain

import "time"

type PaymentIntentStatus string

const (
	PaymentIntentIssued  PaymentIntentStatus = "issued"
	PaymentIntentPaid    PaymentIntentStatus = "paid"
	PaymentIntentFailed  PaymentIntentStatus = "failed"
	PaymentIntentExpired PaymentIntentStatus = "expired"
)

// PaymentIntent is a gateway reference issued for one booking. Callbacks are
// only honoured for references that exist here.
type PaymentIntent struct {
	ReferenceID   string              `json:"reference_id"`
	BookingID     string              `json:"booking_id"`
	Amount        int64               `json:"amount"`
	Status        PaymentIntentStatus `json:"status"`
	TransactionID string              `json:"transaction_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type GatewayStatus string

const (
	GatewayStatusSuccess GatewayStatus = "success"
	GatewayStatusFailed  GatewayStatus = "failed"
)

// GatewayCallback is what the payment gateway posts back after the redirect.
type GatewayCallback struct {
	ReferenceID   string        `json:"reference_id"`
	Amount        int64         `json:"amount"`
	Status        GatewayStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	Signature     string        `json:"signature"`
}
