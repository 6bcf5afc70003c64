package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"carehub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration, retries int) *FonepayClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFonepayClient(Config{
		BaseURL:      srv.URL,
		MerchantCode: "MERCH",
		SecretKey:    "s3cret",
		ReturnURL:    "https://carehub.test/payments/return",
		Timeout:      timeout,
		RetryCount:   retries,
	})
}

func statusHandler(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verifyResponse{PaymentStatus: status})
	}
}

func TestRedirectURL_Signed(t *testing.T) {
	c := NewFonepayClient(Config{BaseURL: "https://gateway.test/", MerchantCode: "MERCH", SecretKey: "s3cret", ReturnURL: "https://carehub.test/r"})
	c.now = func() time.Time { return time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC) }

	raw, err := c.RedirectURL(&domain.PaymentIntent{ReferenceID: "ref-1", BookingID: "b-1", Amount: 2000})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/api/merchantRequest", u.Path)
	q := u.Query()
	assert.Equal(t, "ref-1", q.Get("PRN"))
	assert.Equal(t, "20.00", q.Get("AMT"))
	assert.Equal(t, "11/02/2026", q.Get("DT"))
	assert.Equal(t, c.Sign("MERCH", "P", "ref-1", "20.00", "NPR", "11/02/2026", "b-1", "N/A", "https://carehub.test/r"), q.Get("DV"))
	assert.Len(t, q.Get("DV"), 128)

	_, err = c.RedirectURL(&domain.PaymentIntent{ReferenceID: "ref-1", Amount: 0})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestVerifySignature(t *testing.T) {
	c := NewFonepayClient(Config{SecretKey: "s3cret"})
	cb := domain.GatewayCallback{ReferenceID: "ref-1", Amount: 2000, Status: domain.GatewayStatusSuccess, TransactionID: "txn-1"}
	cb.Signature = c.CallbackSignature(cb)
	require.NoError(t, c.VerifySignature(cb))

	tampered := cb
	tampered.Amount = 1
	assert.True(t, errors.Is(c.VerifySignature(tampered), domain.ErrValidation))

	other := NewFonepayClient(Config{SecretKey: "different"})
	assert.Error(t, other.VerifySignature(cb))
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		want    domain.GatewayStatus
		errKind *domain.Error
	}{
		{"success", "success", domain.GatewayStatusSuccess, nil},
		{"failed", "FAILED", domain.GatewayStatusFailed, nil},
		{"still pending", "pending", "", domain.ErrGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, statusHandler(tt.status), time.Second, 0)
			got, err := c.Verify(t.Context(), "ref-1", 2000)
			if tt.errKind != nil {
				assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify_SendsSignedRequest(t *testing.T) {
	var got verifyRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, verifyPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		statusHandler("success")(w, r)
	}, time.Second, 0)

	_, err := c.Verify(t.Context(), "ref-7", 150)
	require.NoError(t, err)
	assert.Equal(t, "ref-7", got.PRN)
	assert.Equal(t, "MERCH", got.MerchantCode)
	assert.Equal(t, "1.50", got.Amount)
	assert.Equal(t, c.Sign("MERCH", "ref-7", "1.50"), got.DataValidation)
}

func TestVerify_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond, 0)
	defer close(release)

	_, err := c.Verify(t.Context(), "ref-1", 2000)
	assert.True(t, errors.Is(err, domain.ErrGatewayTimeout), "got %v", err)
}

func TestVerify_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		statusHandler("success")(w, r)
	}, time.Second, 2)

	got, err := c.Verify(t.Context(), "ref-1", 2000)
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayStatusSuccess, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVerify_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, time.Second, 2)

	_, err := c.Verify(t.Context(), "ref-1", 2000)
	assert.Error(t, err)
	assert.Empty(t, domain.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}
