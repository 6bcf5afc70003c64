// Package payment talks to the redirect-based payment gateway. Requests and
// callbacks are signed with HMAC-SHA512 over comma-joined fields using the
// merchant secret.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/utils"

	"github.com/go-resty/resty/v2"
)

const (
	serviceName = "fonepay"
	verifyPath  = "/api/merchantRequest/verificationMerchant"
	payPath     = "/api/merchantRequest"
	currency    = "NPR"
)

type Config struct {
	BaseURL      string
	MerchantCode string
	SecretKey    string
	ReturnURL    string
	Timeout      time.Duration
	RetryCount   int
}

// FonepayClient implements service.PaymentGateway.
type FonepayClient struct {
	http      *resty.Client
	baseURL   string
	merchant  string
	secret    []byte
	returnURL string
	now       func() time.Time
}

func NewFonepayClient(cfg Config) *FonepayClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// verification is read-only, so gateway hiccups are safe to retry
			return err == nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &FonepayClient{
		http:      client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		merchant:  cfg.MerchantCode,
		secret:    []byte(cfg.SecretKey),
		returnURL: cfg.ReturnURL,
		now:       time.Now,
	}
}

// Sign returns the hex HMAC-SHA512 of the comma-joined fields.
func (c *FonepayClient) Sign(fields ...string) string {
	mac := hmac.New(sha512.New, c.secret)
	mac.Write([]byte(strings.Join(fields, ",")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *FonepayClient) RedirectURL(intent *domain.PaymentIntent) (string, error) {
	if intent.ReferenceID == "" || intent.Amount <= 0 {
		return "", domain.Errorf(domain.ErrValidation, "payment intent needs a reference and a positive amount")
	}
	amount := utils.FormatAmount(intent.Amount)
	date := c.now().Format("01/02/2006")
	q := url.Values{}
	q.Set("PID", c.merchant)
	q.Set("MD", "P")
	q.Set("PRN", intent.ReferenceID)
	q.Set("AMT", amount)
	q.Set("CRN", currency)
	q.Set("DT", date)
	q.Set("R1", intent.BookingID)
	q.Set("R2", "N/A")
	q.Set("RU", c.returnURL)
	q.Set("DV", c.Sign(c.merchant, "P", intent.ReferenceID, amount, currency, date, intent.BookingID, "N/A", c.returnURL))
	return c.baseURL + payPath + "?" + q.Encode(), nil
}

// CallbackSignature is what the gateway puts in the callback's signature.
func (c *FonepayClient) CallbackSignature(cb domain.GatewayCallback) string {
	return c.Sign(cb.ReferenceID, strconv.FormatInt(cb.Amount, 10), string(cb.Status), cb.TransactionID)
}

func (c *FonepayClient) VerifySignature(cb domain.GatewayCallback) error {
	want := c.CallbackSignature(cb)
	if !hmac.Equal([]byte(strings.ToLower(cb.Signature)), []byte(want)) {
		return domain.Errorf(domain.ErrValidation, "callback for reference %s has an invalid signature", cb.ReferenceID)
	}
	return nil
}

type verifyRequest struct {
	PRN            string `json:"prn"`
	MerchantCode   string `json:"merchantCode"`
	Amount         string `json:"amount"`
	DataValidation string `json:"dataValidation"`
}

type verifyResponse struct {
	PaymentStatus string `json:"paymentStatus"`
	Message       string `json:"message"`
}

// Verify asks the gateway for the settled outcome of a reference. Overrunning
// the configured timeout, and a payment the gateway still reports as pending,
// are both GatewayTimeout so the caller retries with the same reference.
func (c *FonepayClient) Verify(ctx context.Context, referenceID string, amount int64) (domain.GatewayStatus, error) {
	logger.ExternalServiceCall(serviceName, "Verify", "referenceID", referenceID)

	amt := utils.FormatAmount(amount)
	var body verifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(verifyRequest{
			PRN:            referenceID,
			MerchantCode:   c.merchant,
			Amount:         amt,
			DataValidation: c.Sign(c.merchant, referenceID, amt),
		}).
		SetResult(&body).
		Post(verifyPath)
	if err != nil {
		if isTimeout(err) {
			err = domain.Errorf(domain.ErrGatewayTimeout, "gateway verification of %s timed out", referenceID)
		} else {
			err = fmt.Errorf("gateway verification of %s: %w", referenceID, err)
		}
		logger.ExternalServiceResult(serviceName, "Verify", err, "referenceID", referenceID)
		return "", err
	}
	if resp.IsError() {
		err := fmt.Errorf("gateway verification of %s: status %d", referenceID, resp.StatusCode())
		logger.ExternalServiceResult(serviceName, "Verify", err, "referenceID", referenceID)
		return "", err
	}

	var status domain.GatewayStatus
	switch strings.ToLower(body.PaymentStatus) {
	case "success":
		status = domain.GatewayStatusSuccess
	case "failed":
		status = domain.GatewayStatusFailed
	case "pending":
		err = domain.Errorf(domain.ErrGatewayTimeout, "gateway has not settled %s yet", referenceID)
	default:
		err = fmt.Errorf("gateway verification of %s: unknown status %q", referenceID, body.PaymentStatus)
	}
	logger.ExternalServiceResult(serviceName, "Verify", err, "referenceID", referenceID, "status", status)
	return status, err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
