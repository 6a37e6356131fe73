package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentEventReceived  = "received"
	PaymentEventProcessed = "processed"
	PaymentEventIgnored   = "ignored"
	PaymentEventRejected  = "rejected"
	PaymentEventFailed    = "failed"
)

// PaymentEvent records one webhook delivery (or sweep verification) from the gateway,
// kept for audit whether or not it changed an order.
type PaymentEvent struct {
	ID               string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Provider         string         `gorm:"type:varchar(32);not null" json:"provider"`
	Event            string         `gorm:"type:varchar(64);not null;index" json:"event"`
	Reference        string         `gorm:"index" json:"reference"`
	OrderID          *string        `gorm:"type:varchar(36);index" json:"order_id"`
	Amount           int64          `json:"amount"` // minor units as reported by the gateway
	Currency         string         `gorm:"type:varchar(8)" json:"currency"`
	GatewayStatus    string         `gorm:"type:varchar(32)" json:"gateway_status"`
	Signature        string         `json:"-"`
	Payload          datatypes.JSON `json:"payload"`
	ProcessingStatus string         `gorm:"type:varchar(16);not null;index" json:"processing_status"`
	Error            string         `gorm:"type:text" json:"error,omitempty"`
	ProcessedAt      *time.Time     `json:"processed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the PaymentEvent model
func (PaymentEvent) TableName() string {
	return "payment_events"
}

func (e *PaymentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = newID()
	}
	return nil
}
