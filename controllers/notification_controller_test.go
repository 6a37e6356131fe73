package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dispatchPath = "/api/v1/notifications/order-status"

func (e *testEnv) dispatch(body interface{}) *httptest.ResponseRecorder {
	return e.requestWithHeaders(http.MethodPost, dispatchPath, body, map[string]string{
		services.NotifySecretHeader: testNotifySecret,
	})
}

func TestSendOrderNotification(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	body := map[string]interface{}{
		"to":            "ama@example.com",
		"customerName":  "Ama",
		"customerPhone": "0241234567",
		"orderId":       order.ID,
		"status":        "confirmed",
		"orderType":     "delivery",
	}

	w := env.dispatch(body)
	assertStatus(t, w, http.StatusOK)

	response := decodeResponse(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, true, response["emailSent"])
	assert.Equal(t, true, response["smsSent"])

	sent := env.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "confirmed", sent[0].Status)
	assert.Equal(t, "Ama", sent[0].CustomerName)
	assert.Equal(t, order.ID, sent[0].OrderID)
}

func TestSendOrderNotification_RequiresSecret(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)
	body := map[string]interface{}{"to": "ama@example.com", "orderId": order.ID, "status": "ready"}

	t.Run("no secret header", func(t *testing.T) {
		w := env.request(http.MethodPost, dispatchPath, body)
		assertStatus(t, w, http.StatusUnauthorized)
		assert.Equal(t, "INVALID_SECRET", errorCode(t, w))
	})

	t.Run("wrong secret", func(t *testing.T) {
		w := env.requestWithHeaders(http.MethodPost, dispatchPath, body, map[string]string{
			services.NotifySecretHeader: "guess",
		})
		assertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("admin token is not enough", func(t *testing.T) {
		w := env.requestWithHeaders(http.MethodPost, dispatchPath, body, map[string]string{
			"Authorization": "Bearer staff-token",
		})
		assertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("disabled without a configured secret", func(t *testing.T) {
		config.SetConfig(&config.Config{PaymentCurrency: "GHS"})
		w := env.dispatch(body)
		assertStatus(t, w, http.StatusForbidden)
		assert.Equal(t, "ENDPOINT_DISABLED", errorCode(t, w))
	})

	assert.Empty(t, env.notifier.Sent())
}

func TestSendOrderNotification_Errors(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	t.Run("unknown order", func(t *testing.T) {
		w := env.dispatch(map[string]interface{}{
			"to": "anyone@example.com", "orderId": "3f2a9c1e-0000-4000-8000-000000000000", "status": "confirmed",
		})
		assertStatus(t, w, http.StatusNotFound)
		assert.Equal(t, "ORDER_NOT_FOUND", errorCode(t, w))
		assert.Empty(t, env.notifier.Sent())
	})

	t.Run("unsupported status", func(t *testing.T) {
		w := env.dispatch(map[string]interface{}{
			"to": "0241234567", "orderId": order.ID, "status": "preparing",
		})
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "UNSUPPORTED_STATUS", errorCode(t, w))
		assert.Empty(t, env.notifier.Sent())
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.dispatch(map[string]interface{}{
			"status": "ready",
		})
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("provider failure", func(t *testing.T) {
		env.notifier.Err = errors.New("sms provider down")
		defer func() { env.notifier.Err = nil }()

		w := env.dispatch(map[string]interface{}{
			"to": "0241234567", "orderId": order.ID, "status": "ready",
		})
		assertStatus(t, w, http.StatusBadGateway)
		assert.Equal(t, "NOTIFICATION_FAILED", errorCode(t, w))
	})
}

func TestListNotificationLogs(t *testing.T) {
	env := setupTestRouter(t)
	order := createPendingOrder(t, env)

	// Confirming and readying the order logs two notifications
	for _, status := range []string{"confirmed", "ready"} {
		w := env.request(http.MethodPatch, "/api/v1/admin/orders/"+order.ID+"/status", map[string]string{"status": status})
		assertStatus(t, w, http.StatusOK)
	}
	require.NoError(t, env.db.Create(&models.NotificationLog{
		OrderID:     "other",
		OrderStatus: models.OrderStatusReady,
		Driver:      services.NewMockNotifier().Name(),
		Status:      models.NotificationFailed,
		Error:       "timeout",
	}).Error)

	w := env.request(http.MethodGet, "/api/v1/admin/notifications?order_id="+order.ID, nil)
	assertStatus(t, w, http.StatusOK)
	response := decodeResponse(t, w)
	assert.Len(t, response["data"], 2)
	assert.Equal(t, float64(2), response["pagination"].(map[string]interface{})["total"])

	w = env.request(http.MethodGet, "/api/v1/admin/notifications?status=failed", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Len(t, decodeResponse(t, w)["data"], 1)
}
