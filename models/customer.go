package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer is identified by phone; email is optional and not unique
type Customer struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Phone      string    `gorm:"uniqueIndex;not null" json:"phone"`
	Email      string    `gorm:"index" json:"email"`
	NationalID string    `json:"national_id"`
	Address    string    `gorm:"type:text" json:"address"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}
