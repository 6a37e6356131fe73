package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/bitecraft/storefront-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookBody(event, reference string, amount int64, currency string) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"event": event,
		"data": map[string]interface{}{
			"reference": reference,
			"amount":    amount,
			"currency":  currency,
			"status":    "success",
		},
	})
	return raw
}

func (e *testEnv) postWebhook(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paystack/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(PaystackSignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func createPendingOrder(t *testing.T, env *testEnv) *models.Order {
	t.Helper()
	food := testutil.CreateFood(t, env.db, "Jollof Rice", "15.00", "3.00")
	customer := testutil.CreateCustomer(t, env.db, "Ama Mensah", "0241234567", "ama@example.com")
	return testutil.CreateOrder(t, env.db, customer, food, 2) // 30.00 pickup
}

func TestPaystackWebhook_ChargeSuccess(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	body := webhookBody("charge.success", order.ID, 3000, "GHS")
	w := env.postWebhook(body, services.SignPaystackPayload(testPaystackSecret, body))
	assertStatus(t, w, http.StatusOK)

	response := decodeResponse(t, w)
	assert.Equal(t, "Webhook processed successfully", response["message"])
	data := response["data"].(map[string]interface{})
	assert.Equal(t, true, data["changed"])

	var stored models.Order
	require.NoError(t, env.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)

	sent := env.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "confirmed", sent[0].Status)
	assert.Equal(t, "ama@example.com", sent[0].To)

	// A replayed delivery converges without notifying again
	w = env.postWebhook(body, services.SignPaystackPayload(testPaystackSecret, body))
	assertStatus(t, w, http.StatusOK)
	data = decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["changed"])
	assert.Len(t, env.notifier.Sent(), 1)

	var events int64
	env.db.Model(&models.PaymentEvent{}).Where("reference = ?", order.ID).Count(&events)
	assert.Equal(t, int64(2), events)
}

func TestPaystackWebhook_ChargeFailedRejectsOrder(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	body := webhookBody("charge.failed", order.ID, 3000, "GHS")
	w := env.postWebhook(body, services.SignPaystackPayload(testPaystackSecret, body))
	assertStatus(t, w, http.StatusOK)

	var stored models.Order
	require.NoError(t, env.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusRejected, stored.Status)
	assert.NotNil(t, stored.RejectedAt)
	assert.Empty(t, env.notifier.Sent())
}

func TestPaystackWebhook_FailureAfterPaymentIsIgnored(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	paid := webhookBody("charge.success", order.ID, 3000, "GHS")
	assertStatus(t, env.postWebhook(paid, services.SignPaystackPayload(testPaystackSecret, paid)), http.StatusOK)

	failed := webhookBody("charge.failed", order.ID, 3000, "GHS")
	w := env.postWebhook(failed, services.SignPaystackPayload(testPaystackSecret, failed))
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "event ignored", decodeResponse(t, w)["message"])

	var stored models.Order
	require.NoError(t, env.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestPaystackWebhook_Errors(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	sign := func(body []byte) string { return services.SignPaystackPayload(testPaystackSecret, body) }
	good := webhookBody("charge.success", order.ID, 3000, "GHS")

	tests := []struct {
		name           string
		body           []byte
		signature      string
		expectedStatus int
		expectedCode   string
	}{
		{"missing signature", good, "", http.StatusUnauthorized, "INVALID_SIGNATURE"},
		{"wrong secret", good, services.SignPaystackPayload("sk_other", good), http.StatusUnauthorized, "INVALID_SIGNATURE"},
		{"malformed body", []byte("{not json"), sign([]byte("{not json")), http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"missing reference", webhookBody("charge.success", "", 3000, "GHS"), sign(webhookBody("charge.success", "", 3000, "GHS")), http.StatusBadRequest, "MISSING_REFERENCE"},
		{"unknown reference", webhookBody("charge.success", "nope", 3000, "GHS"), sign(webhookBody("charge.success", "nope", 3000, "GHS")), http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"amount mismatch", webhookBody("charge.success", order.ID, 100, "GHS"), sign(webhookBody("charge.success", order.ID, 100, "GHS")), http.StatusUnprocessableEntity, "AMOUNT_MISMATCH"},
		{"currency mismatch", webhookBody("charge.success", order.ID, 3000, "NGN"), sign(webhookBody("charge.success", order.ID, 3000, "NGN")), http.StatusUnprocessableEntity, "AMOUNT_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.postWebhook(tt.body, tt.signature)
			assertStatus(t, w, tt.expectedStatus)
			assert.Equal(t, tt.expectedCode, errorCode(t, w))
		})
	}

	var stored models.Order
	require.NoError(t, env.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestPaystackWebhook_MismatchDetails(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	body := webhookBody("charge.success", order.ID, 2500, "GHS")
	w := env.postWebhook(body, services.SignPaystackPayload(testPaystackSecret, body))
	assertStatus(t, w, http.StatusUnprocessableEntity)

	details := decodeResponse(t, w)["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, order.ID, details["order_id"])
	assert.Equal(t, float64(3000), details["expected_amount"])
	assert.Equal(t, float64(2500), details["received_amount"])
	assert.Equal(t, float64(30), details["expected_total"])
}

func TestPaystackWebhook_IgnoresOtherEvents(t *testing.T) {
	env := setupTestRouter(t)

	body := webhookBody("transfer.success", "TRF_123", 5000, "GHS")
	w := env.postWebhook(body, services.SignPaystackPayload(testPaystackSecret, body))
	assertStatus(t, w, http.StatusOK)

	response := decodeResponse(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "event ignored", response["message"])

	var event models.PaymentEvent
	require.NoError(t, env.db.First(&event, "reference = ?", "TRF_123").Error)
	assert.Equal(t, models.PaymentEventIgnored, event.ProcessingStatus)
}

func TestManualPaymentUpdate(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	t.Run("defaults to paid and confirmed", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/admin/payments/manual-update", map[string]interface{}{
			"order_id": order.ID,
		})
		assertStatus(t, w, http.StatusOK)

		response := decodeResponse(t, w)
		assert.Equal(t, "Payment status updated successfully", response["message"])
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "paid", data["payment_status"])
		assert.Equal(t, "confirmed", data["status"])
		assert.Len(t, env.notifier.Sent(), 1)
	})

	t.Run("explicit statuses", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/admin/payments/manual-update", map[string]interface{}{
			"order_id":       order.ID,
			"payment_status": "failed",
			"order_status":   "rejected",
		})
		assertStatus(t, w, http.StatusOK)
		data := decodeResponse(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "failed", data["payment_status"])
		assert.NotNil(t, data["rejected_at"])
	})

	t.Run("invalid payment status", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/admin/payments/manual-update", map[string]interface{}{
			"order_id":       order.ID,
			"payment_status": "refunded",
		})
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("unknown order", func(t *testing.T) {
		w := env.request(http.MethodPost, "/api/v1/admin/payments/manual-update", map[string]interface{}{
			"order_id": "missing",
		})
		assertStatus(t, w, http.StatusNotFound)
		assert.Equal(t, "ORDER_NOT_FOUND", errorCode(t, w))
	})
}
