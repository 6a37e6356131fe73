package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/bitecraft/storefront-api/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartItemInput is one line of a submitted cart. Prices come from the menu, never the client.
type CartItemInput struct {
	FoodID    string `json:"food_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	OrderType string `json:"order_type" validate:"required,oneof=delivery pickup"`
}

// CheckoutInput is a full checkout submission
type CheckoutInput struct {
	Customer CustomerInput   `json:"customer"`
	Items    []CartItemInput `json:"items" validate:"required,min=1,dive"`
	Notes    string          `json:"notes"`
}

// PricedLine is a cart line joined with the food's current prices
type PricedLine struct {
	FoodID        string
	FoodName      string
	Quantity      int
	OrderType     models.OrderType
	Price         decimal.Decimal
	DeliveryPrice decimal.Decimal
}

// OrderTotals is the single source of truth for an order's money.
// Subtotal already includes per-line delivery surcharges and is what the customer pays;
// DeliveryFee is the largest surcharge among delivery lines, kept for display only.
type OrderTotals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	OrderType   models.OrderType
}

// TotalAmount is the amount charged
func (t OrderTotals) TotalAmount() decimal.Decimal {
	return t.Subtotal
}

// BuildOrderLines prices each line and computes the order totals. The order is a
// delivery order when any line is a delivery line.
func BuildOrderLines(lines []PricedLine) (OrderTotals, []models.OrderItem) {
	totals := OrderTotals{
		Subtotal:    decimal.Zero,
		DeliveryFee: decimal.Zero,
		OrderType:   models.OrderTypePickup,
	}
	items := make([]models.OrderItem, 0, len(lines))

	for _, line := range lines {
		unit := line.Price
		if line.OrderType == models.OrderTypeDelivery {
			unit = unit.Add(line.DeliveryPrice)
			totals.OrderType = models.OrderTypeDelivery
			if line.DeliveryPrice.GreaterThan(totals.DeliveryFee) {
				totals.DeliveryFee = line.DeliveryPrice
			}
		}
		unit = models.RoundMoney(unit)
		lineTotal := models.RoundMoney(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totals.Subtotal = totals.Subtotal.Add(lineTotal)

		items = append(items, models.OrderItem{
			FoodID:     line.FoodID,
			FoodName:   line.FoodName,
			OrderType:  line.OrderType,
			Quantity:   line.Quantity,
			UnitPrice:  unit,
			TotalPrice: lineTotal,
		})
	}

	totals.Subtotal = models.RoundMoney(totals.Subtotal)
	totals.DeliveryFee = models.RoundMoney(totals.DeliveryFee)
	return totals, items
}

// PaymentSession is what the storefront needs to send the customer to the hosted checkout
type PaymentSession struct {
	OrderID          string `json:"order_id"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// CheckoutError reports a failed payment initiation for an order that was created
type CheckoutError struct {
	OrderID string
	Err     error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout failed for order %s: %v", e.OrderID, e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// OrderServiceOptions carries the payment settings the order service needs
type OrderServiceOptions struct {
	Currency            string
	CallbackURL         string
	FallbackEmailDomain string
	WebhookSecret       string
}

// OrderService owns every write to orders: checkout, payment initiation and reconciliation
type OrderService struct {
	db         *gorm.DB
	gateway    PaymentGateway
	dispatcher *NotificationDispatcher
	opts       OrderServiceOptions
	validate   *validator.Validate
	now        func() time.Time
}

var orderServiceInstance *OrderService

// NewOrderService creates an order service. dispatcher may be nil to disable notifications.
func NewOrderService(db *gorm.DB, gateway PaymentGateway, dispatcher *NotificationDispatcher, opts OrderServiceOptions) *OrderService {
	if opts.Currency == "" {
		opts.Currency = "GHS"
	}
	if opts.FallbackEmailDomain == "" {
		opts.FallbackEmailDomain = "bitecraft.com"
	}
	return &OrderService{
		db:         db,
		gateway:    gateway,
		dispatcher: dispatcher,
		opts:       opts,
		validate:   newValidator(),
		now:        time.Now,
	}
}

// InitOrderService sets the process-wide order service
func InitOrderService(s *OrderService) *OrderService {
	orderServiceInstance = s
	return orderServiceInstance
}

// GetOrderService returns the initialized order service
func GetOrderService() *OrderService {
	return orderServiceInstance
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a checkout submission without touching the database
func (s *OrderService) Validate(input CheckoutInput) error {
	if err := s.validate.Struct(input); err != nil {
		return fromValidator(err)
	}

	customer := input.Customer.Normalize()
	if customer.Name == "" || customer.Phone == "" {
		return newValidationError("customer name and phone are required")
	}

	for _, item := range input.Items {
		if item.OrderType == string(models.OrderTypeDelivery) && customer.Address == "" {
			return &ValidationError{
				Message: "delivery address is required for delivery orders",
				Fields:  map[string]string{"customer.address": "is required for delivery orders"},
			}
		}
	}
	return nil
}

// PlaceOrder validates the cart, prices it from the menu, and writes the customer,
// order and items in one transaction. The order starts pending/pending and its
// payment reference is its own id.
func (s *OrderService) PlaceOrder(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if err := s.Validate(input); err != nil {
		return nil, err
	}
	customerInput := input.Customer.Normalize()

	lines, err := s.priceCart(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	totals, items := BuildOrderLines(lines)

	order := &models.Order{
		TotalAmount:   totals.TotalAmount(),
		DeliveryFee:   totals.DeliveryFee,
		OrderType:     totals.OrderType,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Notes:         strings.TrimSpace(input.Notes),
	}
	if totals.OrderType == models.OrderTypeDelivery {
		address := customerInput.Address
		order.DeliveryAddress = &address
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := UpsertCustomer(tx, customerInput)
		if err != nil {
			return err
		}
		order.CustomerID = customer.ID
		order.Customer = customer

		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	log.Printf("[ORDER] created order %s for customer %s total=%s %s", order.ID, order.CustomerID, order.TotalAmount.StringFixed(2), s.opts.Currency)
	return order, nil
}

// priceCart loads the cart's foods and rejects unknown or unavailable ones
func (s *OrderService) priceCart(ctx context.Context, cart []CartItemInput) ([]PricedLine, error) {
	ids := make([]string, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.FoodID)
	}

	var foods []models.Food
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}
	byID := make(map[string]models.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}

	lines := make([]PricedLine, 0, len(cart))
	for i, item := range cart {
		food, ok := byID[item.FoodID]
		if !ok {
			return nil, &ValidationError{
				Message: fmt.Sprintf("food %s does not exist", item.FoodID),
				Fields:  map[string]string{fmt.Sprintf("items[%d].food_id", i): "does not exist"},
			}
		}
		if !food.IsAvailable {
			return nil, &ValidationError{
				Message: fmt.Sprintf("%s is currently unavailable", food.Name),
				Fields:  map[string]string{fmt.Sprintf("items[%d].food_id", i): "is unavailable"},
			}
		}
		lines = append(lines, PricedLine{
			FoodID:        food.ID,
			FoodName:      food.Name,
			Quantity:      item.Quantity,
			OrderType:     models.OrderType(item.OrderType),
			Price:         food.Price,
			DeliveryPrice: food.DeliveryPrice,
		})
	}
	return lines, nil
}

// Checkout places the order and starts payment. When the gateway fails the order
// still exists (pending) and the returned *CheckoutError carries its id.
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, *PaymentSession, error) {
	order, err := s.PlaceOrder(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.InitiatePayment(ctx, order)
	if err != nil {
		return order, nil, &CheckoutError{OrderID: order.ID, Err: err}
	}
	return order, session, nil
}

// InitiatePayment opens a gateway transaction for order (its Customer must be loaded)
// and stores the reference the gateway echoes back
func (s *OrderService) InitiatePayment(ctx context.Context, order *models.Order) (*PaymentSession, error) {
	if s.gateway == nil {
		return nil, &GatewayError{Message: "payment gateway is not configured"}
	}
	if order.Customer == nil {
		return nil, fmt.Errorf("order %s has no customer loaded", order.ID)
	}

	req := s.initializeRequest(order)
	result, err := s.gateway.InitializeTransaction(ctx, req)
	if err != nil {
		log.Printf("[ORDER] payment initialization failed for order %s: %v", order.ID, err)
		return nil, err
	}

	reference := result.Reference
	if reference == "" {
		reference = req.Reference
	}
	if order.PaymentReference == nil || *order.PaymentReference != reference {
		err := s.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("payment_reference", reference).Error
		if err != nil {
			return nil, fmt.Errorf("failed to store payment reference: %w", err)
		}
	}
	order.PaymentReference = &reference

	return &PaymentSession{
		OrderID:          order.ID,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        reference,
	}, nil
}

func (s *OrderService) initializeRequest(order *models.Order) InitializeTransactionRequest {
	customer := order.Customer
	email := customer.Email
	if email == "" {
		email = fmt.Sprintf("%s@%s", customer.Phone, s.opts.FallbackEmailDomain)
	}

	return InitializeTransactionRequest{
		Email:       email,
		Amount:      models.ToMinorUnits(order.TotalAmount),
		Currency:    s.opts.Currency,
		Reference:   order.ID, // the order id is the gateway reference
		CallbackURL: callbackURLFor(s.opts.CallbackURL, order.ID),
		Metadata: TransactionMetadata{
			CustomerName:  customer.Name,
			CustomerPhone: customer.Phone,
			OrderID:       order.ID,
			CustomFields: []CustomField{
				{DisplayName: "Order ID", VariableName: "order_id", Value: order.ID},
				{DisplayName: "Customer Phone", VariableName: "customer_phone", Value: customer.Phone},
			},
		},
	}
}

// callbackURLFor appends order_id to the configured success page URL
func callbackURLFor(base, orderID string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		log.Printf("[ORDER] invalid payment callback URL %q: %v", base, err)
		return ""
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}

// RetryPayment starts a new payment attempt for an order still awaiting payment
func (s *OrderService) RetryPayment(ctx context.Context, orderID string) (*PaymentSession, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return nil, ErrOrderNotPayable
	}
	return s.InitiatePayment(ctx, order)
}

// GetOrder loads an order with its customer and items
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// GatewayOutcome is a payment result reported by the gateway, by webhook or by verification
type GatewayOutcome struct {
	Reference string
	Succeeded bool
	Amount    int64 // minor units
	Currency  string
}

// ApplyGatewayOutcome reconciles a gateway result against the order it references.
// Success marks the order paid/confirmed after checking amount and currency; anything
// else marks it failed/rejected unless the order is already paid (ErrAlreadyPaid). Replays converge on the same row and only an actual
// status change notifies the customer.
func (s *OrderService) ApplyGatewayOutcome(ctx context.Context, outcome GatewayOutcome) (*models.Order, bool, error) {
	if outcome.Reference == "" {
		return nil, false, ErrMissingReference
	}

	guard := func(order *models.Order) error {
		if order.PaymentStatus == models.PaymentStatusPaid {
			return ErrAlreadyPaid
		}
		return nil
	}
	if outcome.Succeeded {
		guard = func(order *models.Order) error {
			expected := models.ToMinorUnits(order.TotalAmount)
			if outcome.Amount != expected || !strings.EqualFold(outcome.Currency, s.opts.Currency) {
				return &AmountMismatchError{
					OrderID:          order.ID,
					ExpectedAmount:   expected,
					ReceivedAmount:   outcome.Amount,
					ExpectedCurrency: s.opts.Currency,
					ReceivedCurrency: outcome.Currency,
				}
			}
			return nil
		}
	}

	update := paymentUpdate{
		PaymentStatus: models.PaymentStatusFailed,
		OrderStatus:   models.OrderStatusRejected,
	}
	if outcome.Succeeded {
		update = paymentUpdate{
			PaymentStatus: models.PaymentStatusPaid,
			OrderStatus:   models.OrderStatusConfirmed,
		}
	}

	return s.updatePayment(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id = ? OR payment_reference = ?", outcome.Reference, outcome.Reference)
	}, update, guard)
}

// ManualPaymentUpdate is an admin override of an order's payment and order status
type ManualPaymentUpdate struct {
	OrderID       string `json:"order_id" validate:"required"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=pending paid failed"`
	OrderStatus   string `json:"order_status" validate:"omitempty,oneof=pending confirmed preparing ready delivered rejected"`
}

// ApplyManualPayment applies an admin override, defaulting to paid/confirmed
func (s *OrderService) ApplyManualPayment(ctx context.Context, input ManualPaymentUpdate) (*models.Order, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fromValidator(err)
	}

	update := paymentUpdate{
		PaymentStatus: models.PaymentStatusPaid,
		OrderStatus:   models.OrderStatusConfirmed,
	}
	if input.PaymentStatus != "" {
		update.PaymentStatus = models.PaymentStatus(input.PaymentStatus)
	}
	if input.OrderStatus != "" {
		update.OrderStatus = models.OrderStatus(input.OrderStatus)
	}

	order, _, err := s.updatePayment(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id = ?", input.OrderID)
	}, update, nil)
	if err != nil {
		return nil, err
	}
	log.Printf("[ORDER] manual payment update for order %s: payment=%s status=%s", order.ID, order.PaymentStatus, order.Status)
	return s.GetOrder(ctx, order.ID)
}

// UpdateOrderStatus moves an order through fulfilment (admin)
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !models.IsValidOrderStatus(string(status)) {
		return nil, &ValidationError{
			Message: fmt.Sprintf("invalid order status %q", status),
			Fields:  map[string]string{"status": "must be one of: pending confirmed preparing ready delivered rejected"},
		}
	}

	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx.Where("id = ?", orderID), &order); err != nil {
			return err
		}
		changed = order.TransitionTo(status, s.now())
		return saveStatus(tx, &order)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.dispatcher.OrderStatusChanged(ctx, orderID)
	}
	return s.GetOrder(ctx, orderID)
}

type paymentUpdate struct {
	PaymentStatus models.PaymentStatus
	OrderStatus   models.OrderStatus
}

// updatePayment locks the selected order, checks guard, and writes the payment and
// order status in one transaction. Notification happens after commit.
func (s *OrderService) updatePayment(ctx context.Context, where func(*gorm.DB) *gorm.DB, update paymentUpdate, guard func(*models.Order) error) (*models.Order, bool, error) {
	var order models.Order
	var changed bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(where(tx), &order); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&order); err != nil {
				return err
			}
		}

		changed = order.TransitionTo(update.OrderStatus, s.now())
		order.PaymentStatus = update.PaymentStatus
		return saveStatus(tx, &order)
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.dispatcher.OrderStatusChanged(ctx, order.ID)
	}
	return &order, changed, nil
}

// lockOrder re-reads the order under a row lock (a no-op on SQLite)
func lockOrder(query *gorm.DB, order *models.Order) error {
	err := query.Clauses(clause.Locking{Strength: "UPDATE"}).First(order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	return nil
}

func saveStatus(tx *gorm.DB, order *models.Order) error {
	result := tx.Model(order).
		Select("status", "payment_status", "delivered_at", "rejected_at", "updated_at").
		Updates(order)
	if result.Error != nil {
		return fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("failed to update order %s: %d rows affected", order.ID, result.RowsAffected)
	}
	return nil
}
