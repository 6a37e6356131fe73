package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// AllModels lists every table the API owns, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Customer{},
		&Category{},
		&Food{},
		&Order{},
		&OrderItem{},
		&PaymentEvent{},
		&NotificationLog{},
		&Chat{},
		&ChatMessage{},
	}
}

func newID() string {
	return uuid.NewString()
}
