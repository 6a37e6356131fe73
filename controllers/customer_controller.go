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

// ListCustomers handles GET /api/v1/admin/customers - customers newest first with
// total_orders and total_spent (paid orders). Optional ?search= on name, phone, email.
func ListCustomers(c *gin.Context) {
	page, limit, offset := pagination(c)

	customers, total, err := services.ListCustomerSummaries(config.GetDB(), c.Query("search"), limit, offset)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       customers,
		"pagination": paginationMeta(page, limit, total),
	})
}

// GetCustomerOrders handles GET /api/v1/admin/customers/:id/orders
func GetCustomerOrders(c *gin.Context) {
	db := config.GetDB()

	var customer models.Customer
	if err := db.First(&customer, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load customer")
		return
	}

	var orders []models.Order
	if err := db.Where("customer_id = ?", customer.ID).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"customer": customer,
		"orders":   orders,
	})
}

// DeleteCustomer handles DELETE /api/v1/admin/customers/:id - only customers who
// never ordered can be deleted
func DeleteCustomer(c *gin.Context) {
	if err := services.DeleteCustomer(config.GetDB(), c.Param("id")); err != nil {
		respondServiceError(c, err, "Failed to delete customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Customer deleted",
	})
}
