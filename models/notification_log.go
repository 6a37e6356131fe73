package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog is one customer notification attempt; failed rows are the dead-letter record
type NotificationLog struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID     string      `gorm:"type:varchar(36);not null;index" json:"order_id"`
	OrderStatus OrderStatus `gorm:"type:varchar(16);not null" json:"order_status"`
	Recipient   string      `json:"recipient"`
	Driver      string      `gorm:"type:varchar(16)" json:"driver"`
	Status      string      `gorm:"type:varchar(16);not null;index" json:"status"`
	EmailSent   bool        `json:"email_sent"`
	SMSSent     bool        `json:"sms_sent"`
	Error       string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName specifies the table name for the NotificationLog model
func (NotificationLog) TableName() string {
	return "notification_logs"
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = newID()
	}
	return nil
}
