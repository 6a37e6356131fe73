package controllers

import (
	"log"
	"net/http"

	"github.com/bitecraft/storefront-api/middleware"
	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
)

// PaystackSignatureHeader carries the HMAC-SHA512 of the raw webhook body
const PaystackSignatureHeader = "X-Paystack-Signature"

// PaystackWebhook handles POST /api/v1/payments/paystack/webhook
func PaystackWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Failed to read request body")
		return
	}

	result, err := services.GetOrderService().HandlePaystackWebhook(c.Request.Context(), body, c.GetHeader(PaystackSignatureHeader))
	if err != nil {
		respondServiceError(c, err, "Failed to process webhook")
		return
	}

	if result.Ignored {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "event ignored",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Webhook processed successfully",
		"data":    result,
	})
}

// ManualPaymentUpdate handles POST /api/v1/admin/payments/manual-update - admin
// override of an order's payment and order status
func ManualPaymentUpdate(c *gin.Context) {
	var req services.ManualPaymentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := services.GetOrderService().ApplyManualPayment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to update payment")
		return
	}

	if userID, err := middleware.GetUserID(c); err == nil {
		log.Printf("[ORDER] manual payment update on %s by %s", order.ID, userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment status updated successfully",
		"data":    order,
	})
}
