package services

import (
	"context"
	"fmt"
	"sync"
)

// MockPaymentGateway is a mock implementation of PaymentGateway for testing
type MockPaymentGateway struct {
	mu sync.Mutex

	// InitializeErr, when set, is returned by every InitializeTransaction call
	InitializeErr error
	// EchoReference overrides the reference the gateway "returns"
	EchoReference string
	// Verifications maps a reference to the result VerifyTransaction returns
	Verifications map[string]*TransactionVerification
	VerifyErr     error

	InitializeCalls []InitializeTransactionRequest
	VerifyCalls     []string
}

// NewMockPaymentGateway creates a new mock gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		Verifications: make(map[string]*TransactionVerification),
	}
}

// SetAsMockForTesting sets this mock as the global payment gateway for testing
func (m *MockPaymentGateway) SetAsMockForTesting() {
	InitPaymentGateway(m)
}

// InitializeTransaction records the request and returns a fake checkout URL
func (m *MockPaymentGateway) InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitializeCalls = append(m.InitializeCalls, req)
	if m.InitializeErr != nil {
		return nil, m.InitializeErr
	}

	reference := req.Reference
	if m.EchoReference != "" {
		reference = m.EchoReference
	}
	return &InitializeTransactionResult{
		AuthorizationURL: fmt.Sprintf("https://checkout.paystack.test/%s", reference),
		AccessCode:       "mock_access_" + reference,
		Reference:        reference,
	}, nil
}

// VerifyTransaction returns the configured verification for reference
func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, reference string) (*TransactionVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VerifyCalls = append(m.VerifyCalls, reference)
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	v, ok := m.Verifications[reference]
	if !ok {
		return nil, &GatewayError{StatusCode: 400, Message: "Transaction reference not found"}
	}
	return v, nil
}

// InitializeCallCount returns how many initialize calls were made
func (m *MockPaymentGateway) InitializeCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.InitializeCalls)
}
