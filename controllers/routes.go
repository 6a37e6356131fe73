package controllers

import (
	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/middleware"
	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the storefront API on router. adminAuth guards every
// /admin route (token validation followed by the admin role check).
func RegisterRoutes(router *gin.Engine, adminAuth ...gin.HandlerFunc) {
	v1 := router.Group("/api/v1")

	// Public storefront
	v1.GET("/menu/categories", ListCategories)
	v1.GET("/menu/foods", ListFoods)
	v1.GET("/uploads/:filename", GetUploadedImage)

	v1.POST("/checkout", Checkout)
	v1.GET("/orders/:id", GetOrderStatus)
	v1.POST("/orders/:id/pay", RetryPayment)

	v1.POST("/payments/paystack/webhook", PaystackWebhook)
	v1.POST("/notifications/order-status",
		middleware.RequireSharedSecret(services.NotifySecretHeader, notifySecret),
		SendOrderNotification,
	)

	v1.POST("/chats", StartChat)
	v1.GET("/chats/:id/messages", ListMessages)
	v1.POST("/chats/:id/messages", SendMessage)

	// Staff
	admin := v1.Group("/admin", adminAuth...)
	{
		admin.GET("/dashboard", GetDashboardStats)

		admin.GET("/orders", ListOrders)
		admin.GET("/orders/:id", GetOrder)
		admin.PATCH("/orders/:id/status", UpdateOrderStatus)
		admin.POST("/payments/manual-update", ManualPaymentUpdate)

		admin.GET("/categories", AdminListCategories)
		admin.POST("/categories", CreateCategory)
		admin.PUT("/categories/:id", UpdateCategory)
		admin.DELETE("/categories/:id", DeleteCategory)

		admin.GET("/foods", AdminListFoods)
		admin.POST("/foods", CreateFood)
		admin.PATCH("/foods/:id", UpdateFood)
		admin.PATCH("/foods/:id/availability", SetFoodAvailability)
		admin.POST("/foods/:id/image", UploadFoodImage)
		admin.DELETE("/foods/:id", DeleteFood)

		admin.GET("/customers", ListCustomers)
		admin.GET("/customers/:id/orders", GetCustomerOrders)
		admin.DELETE("/customers/:id", DeleteCustomer)

		admin.GET("/chats", ListChats)
		admin.GET("/chats/:id/messages", ListMessages)
		admin.POST("/chats/:id/messages", ReplyToChat)
		admin.PATCH("/chats/:id/messages/:messageId/read", MarkMessageRead)

		admin.GET("/notifications", ListNotificationLogs)
	}
}

func notifySecret() string {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg.NotifySecret
	}
	return ""
}
