package testutil

import (
	"os"
	"testing"

	"github.com/bitecraft/storefront-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// It fails the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a migrated in-memory SQLite database. The pool is pinned to a
// single connection because every SQLite :memory: connection is its own database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// CreateCategory inserts an active category
func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()

	category := &models.Category{Name: name, IsActive: true}
	require.NoError(t, db.Create(category).Error)
	return category
}

// CreateFood inserts an available food with the given price and delivery surcharge
func CreateFood(t *testing.T, db *gorm.DB, name, price, deliveryPrice string) *models.Food {
	t.Helper()

	food := &models.Food{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		DeliveryPrice: decimal.RequireFromString(deliveryPrice),
		IsAvailable:   true,
	}
	require.NoError(t, db.Create(food).Error)
	return food
}

// CreateCustomer inserts a customer
func CreateCustomer(t *testing.T, db *gorm.DB, name, phone, email string) *models.Customer {
	t.Helper()

	customer := &models.Customer{Name: name, Phone: phone, Email: email}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

// CreateOrder inserts a pending order for customer with a single line of food
func CreateOrder(t *testing.T, db *gorm.DB, customer *models.Customer, food *models.Food, quantity int) *models.Order {
	t.Helper()

	total := food.Price.Mul(decimal.NewFromInt(int64(quantity)))
	order := &models.Order{
		CustomerID:    customer.ID,
		TotalAmount:   total,
		DeliveryFee:   decimal.Zero,
		OrderType:     models.OrderTypePickup,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, db.Omit("Customer", "Items").Create(order).Error)

	item := &models.OrderItem{
		OrderID:    order.ID,
		FoodID:     food.ID,
		FoodName:   food.Name,
		OrderType:  models.OrderTypePickup,
		Quantity:   quantity,
		UnitPrice:  food.Price,
		TotalPrice: total,
	}
	require.NoError(t, db.Create(item).Error)
	order.Items = []models.OrderItem{*item}
	return order
}
