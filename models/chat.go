package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChatStatusActive = "active"
	ChatStatusClosed = "closed"

	SenderCustomer = "customer"
	SenderAdmin    = "admin"
)

// Chat is a customer's support conversation; each customer has at most one
type Chat struct {
	ID         string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerID string        `gorm:"type:varchar(36);not null;uniqueIndex" json:"customer_id"`
	Customer   *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status     string        `gorm:"type:varchar(16);not null" json:"status"`
	Messages   []ChatMessage `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `gorm:"index" json:"updated_at"`
}

// TableName specifies the table name for the Chat model
func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// ChatMessage is one message in a chat
type ChatMessage struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChatID     string    `gorm:"type:varchar(36);not null;index" json:"chat_id"` // foreign key to chats table
	SenderType string    `gorm:"type:varchar(16);not null" json:"sender_type"`   // customer or admin
	SenderID   string    `gorm:"not null" json:"sender_id"`                      // customer id, or the admin's token subject
	Message    string    `gorm:"type:text;not null" json:"message"`
	IsRead     bool      `gorm:"not null" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the ChatMessage model
func (ChatMessage) TableName() string {
	return "chat_messages"
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
