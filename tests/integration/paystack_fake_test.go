package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/bitecraft/storefront-api/services"
)

// fakePaystack is an httptest stand-in for the Paystack transaction API
type fakePaystack struct {
	server *httptest.Server
	secret string

	mu           sync.Mutex
	initialized  []services.InitializeTransactionRequest
	verifyStatus map[string]string
	failNext     int
}

func newFakePaystack(secret string) *fakePaystack {
	f := &fakePaystack{secret: secret, verifyStatus: make(map[string]string)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakePaystack) Close() {
	f.server.Close()
}

func (f *fakePaystack) URL() string {
	return f.server.URL
}

// Reset forgets recorded calls and configured outcomes
func (f *fakePaystack) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = nil
	f.verifyStatus = make(map[string]string)
	f.failNext = 0
}

func (f *fakePaystack) Initialized() []services.InitializeTransactionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]services.InitializeTransactionRequest, len(f.initialized))
	copy(out, f.initialized)
	return out
}

func (f *fakePaystack) SetVerifyStatus(reference, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyStatus[reference] = status
}

// FailNext makes the next n calls answer 503
func (f *fakePaystack) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

func (f *fakePaystack) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Header.Get("Authorization") != "Bearer "+f.secret {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Invalid key"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext > 0 {
		f.failNext--
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Service unavailable"})
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/transaction/initialize":
		var req services.InitializeTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Invalid body"})
			return
		}
		f.initialized = append(f.initialized, req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]interface{}{
				"authorization_url": "https://checkout.paystack.com/" + req.Reference,
				"access_code":       "ac_" + req.Reference,
				"reference":         req.Reference,
			},
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
		reference := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		status, ok := f.verifyStatus[reference]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Transaction reference not found"})
			return
		}
		var amount int64
		for _, req := range f.initialized {
			if req.Reference == reference {
				amount = req.Amount
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"reference": reference,
				"status":    status,
				"amount":    amount,
				"currency":  "GHS",
			},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Not found"})
	}
}
