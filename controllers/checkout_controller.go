package controllers

import (
	"errors"
	"net/http"

	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
)

// Checkout handles POST /api/v1/checkout - places an order and starts payment
func Checkout(c *gin.Context) {
	var req services.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, session, err := services.GetOrderService().Checkout(c.Request.Context(), req)
	if err != nil {
		// The order was saved; only the gateway call failed
		var checkoutErr *services.CheckoutError
		if errors.As(err, &checkoutErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PAYMENT_GATEWAY_ERROR",
					"message": "Checkout failed: payment could not be started",
					"details": gin.H{
						"order_id": checkoutErr.OrderID,
						"reason":   checkoutErr.Err.Error(),
					},
				},
			})
			return
		}
		respondServiceError(c, err, "Failed to place order")
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"order":             order,
		"order_id":          order.ID,
		"authorization_url": session.AuthorizationURL,
		"access_code":       session.AccessCode,
		"reference":         session.Reference,
	})
}

// RetryPayment handles POST /api/v1/orders/:id/pay - starts a new payment attempt
// for an order still awaiting payment
func RetryPayment(c *gin.Context) {
	session, err := services.GetOrderService().RetryPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to start payment")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"order_id":          session.OrderID,
		"authorization_url": session.AuthorizationURL,
		"access_code":       session.AccessCode,
		"reference":         session.Reference,
	})
}

// GetOrderStatus handles GET /api/v1/orders/:id - the status view shown on the
// payment-success page
func GetOrderStatus(c *gin.Context) {
	order, err := services.GetOrderService().GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to load order")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"id":             order.ID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"order_type":     order.OrderType,
		"total_amount":   order.DisplayTotal(),
		"delivery_fee":   order.DeliveryFee,
		"items":          order.Items,
		"created_at":     order.CreatedAt,
	})
}
