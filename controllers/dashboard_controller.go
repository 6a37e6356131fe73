package controllers

import (
	"net/http"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DashboardStats is the admin overview
type DashboardStats struct {
	Categories    int64           `json:"categories"`
	Foods         int64           `json:"foods"`
	Customers     int64           `json:"customers"`
	Orders        int64           `json:"orders"`
	PendingOrders int64           `json:"pending_orders"`
	PaidOrders    int64           `json:"paid_orders"`
	Revenue       decimal.Decimal `json:"revenue"`
}

// GetDashboardStats handles GET /api/v1/admin/dashboard
func GetDashboardStats(c *gin.Context) {
	db := config.GetDB()
	var stats DashboardStats

	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
	}{
		{model: &models.Category{}, dest: &stats.Categories},
		{model: &models.Food{}, dest: &stats.Foods},
		{model: &models.Customer{}, dest: &stats.Customers},
		{model: &models.Order{}, dest: &stats.Orders},
		{model: &models.Order{}, where: "status = ?", args: []interface{}{models.OrderStatusPending}, dest: &stats.PendingOrders},
		{model: &models.Order{}, where: "payment_status = ?", args: []interface{}{models.PaymentStatusPaid}, dest: &stats.PaidOrders},
	}
	for _, q := range counts {
		query := db.Model(q.model)
		if q.where != "" {
			query = query.Where(q.where, q.args...)
		}
		if err := query.Count(q.dest).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute dashboard stats")
			return
		}
	}

	var paid []models.Order
	if err := db.Select("total_amount").Where("payment_status = ?", models.PaymentStatusPaid).Find(&paid).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to compute revenue")
		return
	}
	stats.Revenue = decimal.Zero
	for _, o := range paid {
		stats.Revenue = stats.Revenue.Add(o.TotalAmount)
	}

	respondOK(c, http.StatusOK, stats)
}
