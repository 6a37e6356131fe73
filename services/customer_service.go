package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bitecraft/storefront-api/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerInput is the contact block submitted with a checkout or a new chat
type CustomerInput struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	NationalID string `json:"nationalId"`
	Address    string `json:"address"`
}

// Normalize trims surrounding whitespace from every field
func (in CustomerInput) Normalize() CustomerInput {
	return CustomerInput{
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.TrimSpace(in.Email),
		NationalID: strings.TrimSpace(in.NationalID),
		Address:    strings.TrimSpace(in.Address),
	}
}

// MergeCustomer folds a repeat customer's submitted details into the stored record.
// Name always follows the latest submission; email, national id and address are only
// replaced by non-empty values; phone is the identity and is never rewritten.
// changed is false when nothing differs and no write is needed.
func MergeCustomer(existing models.Customer, incoming CustomerInput) (models.Customer, bool) {
	merged := existing
	changed := false

	if incoming.Name != "" && incoming.Name != existing.Name {
		merged.Name = incoming.Name
		changed = true
	}
	if incoming.Email != "" && incoming.Email != existing.Email {
		merged.Email = incoming.Email
		changed = true
	}
	if incoming.NationalID != "" && incoming.NationalID != existing.NationalID {
		merged.NationalID = incoming.NationalID
		changed = true
	}
	if incoming.Address != "" && incoming.Address != existing.Address {
		merged.Address = incoming.Address
		changed = true
	}

	return merged, changed
}

// UpsertCustomer finds the customer by phone (or email when given) and merges the
// submitted details, or inserts a new customer. tx must be a transaction: a lost
// insert race is recovered through a savepoint.
func UpsertCustomer(tx *gorm.DB, input CustomerInput) (*models.Customer, error) {
	input = input.Normalize()
	if input.Name == "" || input.Phone == "" {
		return nil, newValidationError("customer name and phone are required")
	}

	existing, err := findCustomer(tx, input)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return mergeAndSave(tx, *existing, input)
	}

	customer := models.Customer{
		Name:       input.Name,
		Phone:      input.Phone,
		Email:      input.Email,
		NationalID: input.NationalID,
		Address:    input.Address,
	}

	if err := tx.SavePoint("customer_insert").Error; err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := tx.Create(&customer).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}

		// Another checkout inserted this phone first; continue with its row
		log.Printf("[CUSTOMER] concurrent insert for phone %s, re-reading", input.Phone)
		if rbErr := tx.RollbackTo("customer_insert").Error; rbErr != nil {
			return nil, fmt.Errorf("failed to roll back to savepoint: %w", rbErr)
		}
		var winner models.Customer
		if err := tx.Where("phone = ?", input.Phone).First(&winner).Error; err != nil {
			return nil, fmt.Errorf("failed to re-read customer: %w", err)
		}
		return mergeAndSave(tx, winner, input)
	}

	return &customer, nil
}

func findCustomer(tx *gorm.DB, input CustomerInput) (*models.Customer, error) {
	query := tx.Where("phone = ?", input.Phone)
	if input.Email != "" {
		query = query.Or("email = ?", input.Email)
	}

	var customer models.Customer
	err := query.Order("created_at DESC").First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	return &customer, nil
}

func mergeAndSave(tx *gorm.DB, existing models.Customer, input CustomerInput) (*models.Customer, error) {
	merged, changed := MergeCustomer(existing, input)
	if !changed {
		return &existing, nil
	}

	err := tx.Model(&models.Customer{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"name":        merged.Name,
			"email":       merged.Email,
			"national_id": merged.NationalID,
			"address":     merged.Address,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return &merged, nil
}

// isUniqueViolation recognises unique-constraint errors from PostgreSQL (SQLSTATE 23505)
// and, by message, from SQLite
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// CustomerSummary is a customer with order statistics for the admin list.
// TotalSpent counts paid orders only.
type CustomerSummary struct {
	models.Customer
	TotalOrders int64           `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
}

// ListCustomerSummaries returns customers newest first with their order totals
func ListCustomerSummaries(db *gorm.DB, search string, limit, offset int) ([]CustomerSummary, int64, error) {
	query := db.Model(&models.Customer{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(customers.name) LIKE ? OR customers.phone LIKE ? OR LOWER(customers.email) LIKE ?", like, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	var customers []models.Customer
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}

	summaries := make([]CustomerSummary, len(customers))
	if len(customers) == 0 {
		return summaries, total, nil
	}

	ids := make([]string, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}

	var orders []models.Order
	err := db.Select("customer_id", "payment_status", "total_amount").
		Where("customer_id IN ?", ids).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load customer orders: %w", err)
	}

	byCustomer := make(map[string]*CustomerSummary, len(customers))
	for i, c := range customers {
		summaries[i] = CustomerSummary{Customer: c, TotalSpent: decimal.Zero}
		byCustomer[c.ID] = &summaries[i]
	}
	for _, o := range orders {
		s := byCustomer[o.CustomerID]
		s.TotalOrders++
		if o.PaymentStatus == models.PaymentStatusPaid {
			s.TotalSpent = s.TotalSpent.Add(o.TotalAmount)
		}
	}

	return summaries, total, nil
}

// DeleteCustomer removes a customer who has never ordered, along with their chat
func DeleteCustomer(db *gorm.DB, customerID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, "id = ?", customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("failed to load customer: %w", err)
		}

		var orders int64
		if err := tx.Model(&models.Order{}).Where("customer_id = ?", customer.ID).Count(&orders).Error; err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}
		if orders > 0 {
			return ErrCustomerHasOrders
		}

		chats := tx.Model(&models.Chat{}).Select("id").Where("customer_id = ?", customer.ID)
		if err := tx.Where("chat_id IN (?)", chats).Delete(&models.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", err)
		}
		if err := tx.Where("customer_id = ?", customer.ID).Delete(&models.Chat{}).Error; err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		if err := tx.Delete(&customer).Error; err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}

		log.Printf("[CUSTOMER] deleted customer %s", customer.ID)
		return nil
	})
}
