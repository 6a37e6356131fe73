package controllers

import (
	"errors"
	"net/http"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OrderNotificationRequest is the dispatch payload; field names match what the
// http notifier driver posts
type OrderNotificationRequest struct {
	To            string `json:"to" binding:"required"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	OrderID       string `json:"orderId" binding:"required"`
	Status        string `json:"status" binding:"required"`
	OrderType     string `json:"orderType"`
}

// SendOrderNotification handles POST /api/v1/notifications/order-status - renders and
// sends the confirmed/ready message for an existing order through the configured
// notifier. Callers authenticate with the X-Notify-Secret header.
func SendOrderNotification(c *gin.Context) {
	var req OrderNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	status := models.OrderStatus(req.Status)
	if !status.NotifiesCustomer() {
		respondServiceError(c, services.ErrUnsupportedStatus, "")
		return
	}

	var order models.Order
	err := config.GetDB().Select("id").First(&order, "id = ?", req.OrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, services.ErrOrderNotFound, "")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order")
		return
	}

	notifier := services.GetNotifier()
	if notifier == nil {
		notifier = services.NewLogNotifier()
	}

	result, err := notifier.Notify(c.Request.Context(), services.OrderNotification{
		To:            req.To,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		OrderID:       req.OrderID,
		Status:        req.Status,
		OrderType:     req.OrderType,
	})
	if err != nil {
		respondError(c, http.StatusBadGateway, "NOTIFICATION_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListNotificationLogs handles GET /api/v1/admin/notifications - newest first.
// Optional filters: order_id, status (sent|failed).
func ListNotificationLogs(c *gin.Context) {
	db := config.GetDB()
	query := db.Model(&models.NotificationLog{})
	if orderID := c.Query("order_id"); orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count notification logs")
		return
	}

	page, limit, offset := pagination(c)
	var logs []models.NotificationLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch notification logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       logs,
		"pagination": paginationMeta(page, limit, total),
	})
}
