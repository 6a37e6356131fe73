package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/services"
	"github.com/bitecraft/storefront-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testPaystackSecret = "sk_test_controller_secret"
	testNotifySecret   = "notify_controller_secret"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	gateway  *services.MockPaymentGateway
	notifier *services.MockNotifier
	images   *services.MockImageService
}

// setupTestRouter wires the full route table against an in-memory database, a mock
// gateway and a mock notifier. Admin routes are authenticated as a staff admin.
func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	previous := config.GetConfig()
	config.SetConfig(&config.Config{PaymentCurrency: "GHS", NotifySecret: testNotifySecret})
	t.Cleanup(func() { config.SetConfig(previous) })

	gateway := services.NewMockPaymentGateway()
	gateway.SetAsMockForTesting()
	notifier := services.NewMockNotifier()
	services.InitNotifier(notifier)
	images := services.NewMockImageService()
	images.SetAsMockForTesting()

	services.InitOrderService(services.NewOrderService(db, gateway,
		services.NewNotificationDispatcher(db, notifier, time.Second),
		services.OrderServiceOptions{
			Currency:      "GHS",
			CallbackURL:   "https://shop.bitecraft.test/payment-success",
			WebhookSecret: testPaystackSecret,
		}))

	router := gin.New()
	RegisterRoutes(router, testutil.MockAdminAuth())

	return &testEnv{router: router, db: db, gateway: gateway, notifier: notifier, images: images}
}

// request sends body (marshalled to JSON when not nil) and returns the recorder
func (e *testEnv) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	return e.requestWithHeaders(method, path, body, nil)
}

func (e *testEnv) requestWithHeaders(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

// errorCode returns error.code from an error envelope
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	response := decodeResponse(t, w)
	require.Equal(t, false, response["success"])
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "response should carry an error object")
	return errObj["code"].(string)
}

func checkoutBody(foodID, orderType string, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]interface{}{
			"name":    "Ama Mensah",
			"phone":   "0241234567",
			"email":   "ama@example.com",
			"address": "12 Oxford St, Osu",
		},
		"items": []map[string]interface{}{
			{"food_id": foodID, "quantity": quantity, "order_type": orderType},
		},
	}
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	require.Equal(t, expected, w.Code, w.Body.String())
}
