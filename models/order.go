package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRejected  OrderStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Order is one checkout. TotalAmount is the sum of its items' TotalPrice and already
// includes per-line delivery surcharges; DeliveryFee is a display breakdown only.
//
// PaymentReference starts out equal to ID (the order id is the gateway reference)
// and is only replaced if the gateway echoes back a different reference.
// PaymentCheckedAt is when the pending payment sweep last asked the gateway.
type Order struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerID       string          `gorm:"type:varchar(36);not null;index" json:"customer_id"`
	Customer         *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DeliveryFee      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	OrderType        OrderType       `gorm:"type:varchar(16);not null" json:"order_type"`
	Status           OrderStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	PaymentStatus    PaymentStatus   `gorm:"type:varchar(16);not null;index" json:"payment_status"`
	PaymentReference *string         `gorm:"index" json:"payment_reference"`
	Notes            string          `gorm:"type:text" json:"notes"`
	DeliveryAddress  *string         `gorm:"type:text" json:"delivery_address"`
	PaymentCheckedAt *time.Time      `gorm:"index" json:"payment_checked_at,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at"`
	RejectedAt       *time.Time      `json:"rejected_at"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = newID()
	}
	if o.PaymentReference == nil {
		ref := o.ID
		o.PaymentReference = &ref
	}
	return nil
}

// DisplayTotal is the amount the customer pays. Delivery is already embedded in the
// line totals, so the delivery fee is never added on top.
func (o *Order) DisplayTotal() decimal.Decimal {
	return o.TotalAmount
}

// TransitionTo moves the order to status and stamps DeliveredAt/RejectedAt the first
// time the order enters those statuses. It reports whether the status changed.
func (o *Order) TransitionTo(status OrderStatus, now time.Time) bool {
	changed := o.Status != status
	o.Status = status
	switch status {
	case OrderStatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	case OrderStatusRejected:
		if o.RejectedAt == nil {
			o.RejectedAt = &now
		}
	}
	return changed
}

// OrderItem is one cart line frozen at checkout. Rows are never updated.
type OrderItem struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID    string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	FoodID     string          `gorm:"type:varchar(36);not null;index" json:"food_id"`
	Food       *Food           `gorm:"foreignKey:FoodID" json:"food,omitempty"`
	FoodName   string          `json:"food_name"`
	OrderType  OrderType       `gorm:"type:varchar(16);not null" json:"order_type"`
	Quantity   int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = newID()
	}
	return nil
}

// IsValidOrderStatus reports whether s names one of the six order statuses
func IsValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusRejected:
		return true
	}
	return false
}

// IsValidPaymentStatus reports whether s names one of the payment statuses
func IsValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// NotifiesCustomer reports whether entering this status sends the customer a message
func (s OrderStatus) NotifiesCustomer() bool {
	return s == OrderStatusConfirmed || s == OrderStatusReady
}
