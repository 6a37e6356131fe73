package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PaymentGateway is the hosted-checkout gateway the storefront charges through
type PaymentGateway interface {
	// InitializeTransaction creates a hosted payment page for one order
	InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error)

	// VerifyTransaction asks the gateway for the current state of a transaction
	VerifyTransaction(ctx context.Context, reference string) (*TransactionVerification, error)
}

// InitializeTransactionRequest is the body of Paystack's transaction/initialize call.
// Amount is in the currency's minor unit.
type InitializeTransactionRequest struct {
	Email       string              `json:"email"`
	Amount      int64               `json:"amount"`
	Currency    string              `json:"currency"`
	Reference   string              `json:"reference"`
	CallbackURL string              `json:"callback_url,omitempty"`
	Metadata    TransactionMetadata `json:"metadata"`
}

// TransactionMetadata is echoed back by the gateway on webhooks and shown on its dashboard
type TransactionMetadata struct {
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	OrderID       string        `json:"order_id"`
	CustomFields  []CustomField `json:"custom_fields,omitempty"`
}

type CustomField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

type InitializeTransactionResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionVerification is the subset of transaction/verify the reconciler needs
type TransactionVerification struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"` // success, failed, abandoned, reversed, ongoing, pending, ...
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
}

// GatewayError is returned for any failed gateway call: transport failures,
// non-2xx responses, `status: false` payloads and malformed bodies
type GatewayError struct {
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("payment gateway error (%d): %s", e.StatusCode, e.Message)
	}
	return "payment gateway error: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt could plausibly succeed
func (e *GatewayError) retryable() bool {
	if e.StatusCode == 0 {
		return e.Err != nil && !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.StatusCode >= 500
}

// paystackEnvelope wraps every Paystack API response
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// PaystackService talks to the Paystack REST API
type PaystackService struct {
	secretKey    string
	baseURL      string
	httpClient   *http.Client
	maxAttempts  int
	retryBackoff time.Duration
}

var paymentGatewayInstance PaymentGateway

// NewPaystackService creates a Paystack client. timeout bounds each attempt;
// maxAttempts bounds retries of transport errors and 5xx responses.
func NewPaystackService(secretKey, baseURL string, timeout time.Duration, maxAttempts int) *PaystackService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PaystackService{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxAttempts:  maxAttempts,
		retryBackoff: 250 * time.Millisecond,
	}
}

// InitPaymentGateway sets the process-wide gateway
func InitPaymentGateway(gateway PaymentGateway) PaymentGateway {
	paymentGatewayInstance = gateway
	return paymentGatewayInstance
}

// GetPaymentGateway returns the initialized gateway
func GetPaymentGateway() PaymentGateway {
	return paymentGatewayInstance
}

// InitializeTransaction calls POST /transaction/initialize
func (s *PaystackService) InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initialize request: %w", err)
	}

	log.Printf("[PAYSTACK] initializing transaction reference=%s amount=%d %s", req.Reference, req.Amount, req.Currency)

	data, err := s.call(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var result InitializeTransactionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &GatewayError{Message: "invalid initialize response data", Err: err}
	}
	if result.AuthorizationURL == "" {
		return nil, &GatewayError{Message: "invalid payment response - no authorization URL provided"}
	}

	return &result, nil
}

// VerifyTransaction calls GET /transaction/verify/:reference
func (s *PaystackService) VerifyTransaction(ctx context.Context, reference string) (*TransactionVerification, error) {
	if reference == "" {
		return nil, &GatewayError{Message: "reference is required"}
	}

	data, err := s.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var result TransactionVerification
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &GatewayError{Message: "invalid verify response data", Err: err}
	}
	return &result, nil
}

// call performs one API request with bounded retries and returns the envelope's data
func (s *PaystackService) call(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var lastErr *GatewayError

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := s.retryBackoff << (attempt - 2)
			log.Printf("[PAYSTACK] retrying %s %s in %s (attempt %d/%d): %v", method, path, wait, attempt, s.maxAttempts, lastErr)
			select {
			case <-ctx.Done():
				return nil, &GatewayError{Message: "request cancelled", Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		data, gwErr := s.do(ctx, method, path, body)
		if gwErr == nil {
			return data, nil
		}
		lastErr = gwErr
		if !gwErr.retryable() {
			break
		}
	}

	return nil, lastErr
}

func (s *PaystackService) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, *GatewayError) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, &GatewayError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Message: "network error when contacting payment gateway", Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[PAYSTACK] warning: failed to close response body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    "invalid response from payment gateway: " + truncate(string(raw), 200),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = "payment initialization failed"
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}

	return envelope.Data, nil
}

// VerifyPaystackSignature checks the X-Paystack-Signature header: the lowercase hex
// HMAC-SHA512 of the raw request body keyed with the secret key
func VerifyPaystackSignature(secretKey string, body []byte, signature string) bool {
	if secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// SignPaystackPayload produces the signature Paystack would send for body
func SignPaystackPayload(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
