package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/bitecraft/storefront-api/models"
	"gorm.io/datatypes"
)

const (
	providerPaystack = "paystack"

	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// PaystackWebhookEvent is the body Paystack posts to the webhook
type PaystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string          `json:"reference"`
		Amount          int64           `json:"amount"`
		Currency        string          `json:"currency"`
		Status          string          `json:"status"`
		GatewayResponse string          `json:"gateway_response"`
		Metadata        json.RawMessage `json:"metadata"`
	} `json:"data"`
}

// WebhookResult describes what a webhook delivery did
type WebhookResult struct {
	Event   string        `json:"event"`
	Ignored bool          `json:"ignored"`
	Changed bool          `json:"changed"`
	Order   *models.Order `json:"order,omitempty"`
}

// HandlePaystackWebhook verifies, records and applies one webhook delivery.
// The raw body is needed for the signature check.
func (s *OrderService) HandlePaystackWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !VerifyPaystackSignature(s.opts.WebhookSecret, body, signature) {
		log.Printf("[WEBHOOK] rejected delivery with invalid signature")
		return nil, ErrInvalidSignature
	}

	var event PaystackWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("[WEBHOOK] malformed payload: %v", err)
		return nil, ErrMalformedPayload
	}

	record := &models.PaymentEvent{
		Provider:         providerPaystack,
		Event:            event.Event,
		Reference:        event.Data.Reference,
		Amount:           event.Data.Amount,
		Currency:         event.Data.Currency,
		GatewayStatus:    event.Data.Status,
		Signature:        signature,
		Payload:          datatypes.JSON(body),
		ProcessingStatus: models.PaymentEventReceived,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		// The audit row is best effort; reconciliation still proceeds
		log.Printf("[WEBHOOK] failed to record %s event: %v", event.Event, err)
		record = nil
	}

	result := &WebhookResult{Event: event.Event}

	if event.Event != EventChargeSuccess && event.Event != EventChargeFailed {
		log.Printf("[WEBHOOK] ignoring %s event", event.Event)
		result.Ignored = true
		s.finishEvent(ctx, record, models.PaymentEventIgnored, nil, nil)
		return result, nil
	}

	outcome := GatewayOutcome{
		Reference: event.Data.Reference,
		Succeeded: event.Event == EventChargeSuccess && event.Data.Status == "success",
		Amount:    event.Data.Amount,
		Currency:  event.Data.Currency,
	}

	order, changed, err := s.ApplyGatewayOutcome(ctx, outcome)
	if errors.Is(err, ErrAlreadyPaid) {
		log.Printf("[WEBHOOK] ignoring %s for paid order %q", event.Event, event.Data.Reference)
		result.Ignored = true
		s.finishEvent(ctx, record, models.PaymentEventIgnored, nil, err)
		return result, nil
	}
	if err != nil {
		status := models.PaymentEventFailed
		var mismatch *AmountMismatchError
		if errors.Is(err, ErrMissingReference) || errors.Is(err, ErrOrderNotFound) || errors.As(err, &mismatch) {
			status = models.PaymentEventRejected
		}
		log.Printf("[WEBHOOK] %s for reference %q not applied: %v", event.Event, event.Data.Reference, err)
		s.finishEvent(ctx, record, status, nil, err)
		return nil, err
	}

	log.Printf("[WEBHOOK] %s applied to order %s: payment=%s status=%s changed=%t",
		event.Event, order.ID, order.PaymentStatus, order.Status, changed)
	s.finishEvent(ctx, record, models.PaymentEventProcessed, &order.ID, nil)

	result.Changed = changed
	result.Order = order
	return result, nil
}

func (s *OrderService) finishEvent(ctx context.Context, record *models.PaymentEvent, status string, orderID *string, cause error) {
	if record == nil {
		return
	}
	now := s.now()
	updates := map[string]interface{}{
		"processing_status": status,
		"processed_at":      &now,
	}
	if orderID != nil {
		updates["order_id"] = *orderID
	}
	if cause != nil {
		updates["error"] = cause.Error()
	}
	if err := s.db.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
		log.Printf("[WEBHOOK] failed to update payment event %s: %v", record.ID, err)
	}
}

// recordVerification writes an audit row for a sweep verification
func (s *OrderService) recordVerification(ctx context.Context, v *TransactionVerification, orderID string, status string, cause error) {
	now := s.now()
	event := models.PaymentEvent{
		Provider:         providerPaystack,
		Event:            "verify." + v.Status,
		Reference:        v.Reference,
		OrderID:          &orderID,
		Amount:           v.Amount,
		Currency:         v.Currency,
		GatewayStatus:    v.Status,
		ProcessingStatus: status,
		ProcessedAt:      &now,
	}
	if payload, err := json.Marshal(v); err == nil {
		event.Payload = datatypes.JSON(payload)
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Printf("[RECONCILE] failed to record verification for order %s: %v", orderID, err)
	}
}
