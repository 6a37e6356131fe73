package controllers

import (
	"net/http"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdateOrderStatusRequest represents the request body for moving an order through fulfilment
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListOrders handles GET /api/v1/admin/orders - lists orders newest first.
// Optional filters: status, payment_status, order_type, customer_id.
func ListOrders(c *gin.Context) {
	db := config.GetDB()
	query := db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		if !models.IsValidOrderStatus(status) {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Invalid status filter. Must be one of: pending, confirmed, preparing, ready, delivered, rejected")
			return
		}
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		if !models.IsValidPaymentStatus(paymentStatus) {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Invalid payment_status filter. Must be one of: pending, paid, failed")
			return
		}
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if orderType := c.Query("order_type"); orderType != "" {
		query = query.Where("order_type = ?", orderType)
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count orders")
		return
	}

	page, limit, offset := pagination(c)
	var orders []models.Order
	if err := query.
		Preload("Customer").
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       orders,
		"pagination": paginationMeta(page, limit, total),
	})
}

// GetOrder handles GET /api/v1/admin/orders/:id - order with customer and items
func GetOrder(c *gin.Context) {
	order, err := services.GetOrderService().GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to load order")
		return
	}

	respondOK(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdateOrderStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(c, err, "Failed to update order status")
		return
	}

	respondOK(c, http.StatusOK, order)
}
