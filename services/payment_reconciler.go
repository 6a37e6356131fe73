package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bitecraft/storefront-api/models"
	"github.com/robfig/cron/v3"
)

// sweepBatchSize bounds how many stale orders one run verifies
const sweepBatchSize = 100

// PaymentReconciler periodically verifies orders whose payment is still pending
// with the gateway, for customers whose webhook never arrived
type PaymentReconciler struct {
	orders    *OrderService
	olderThan time.Duration
	batchSize int
	cron      *cron.Cron
}

func NewPaymentReconciler(orders *OrderService, olderThan time.Duration) *PaymentReconciler {
	return &PaymentReconciler{
		orders:    orders,
		olderThan: olderThan,
		batchSize: sweepBatchSize,
	}
}

// Start schedules the sweep. Runs never overlap: a tick that fires while the
// previous run is still going is skipped.
func (r *PaymentReconciler) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		updated, err := r.RunOnce(ctx)
		if err != nil {
			log.Printf("[RECONCILE] sweep failed: %v", err)
			return
		}
		if updated > 0 {
			log.Printf("[RECONCILE] sweep updated %d order(s)", updated)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	r.cron = c
	c.Start()
	log.Printf("[RECONCILE] pending payment sweep scheduled (%s, older than %s)", schedule, r.olderThan)
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish
func (r *PaymentReconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce verifies one batch of stale pending orders and returns how many changed.
// Orders never checked go first, then the least recently checked, so orders the
// gateway cannot verify rotate to the back instead of starving the rest.
func (r *PaymentReconciler) RunOnce(ctx context.Context) (int, error) {
	s := r.orders
	if s.gateway == nil {
		return 0, errors.New("payment gateway is not configured")
	}

	cutoff := s.now().Add(-r.olderThan)
	var stale []models.Order
	err := s.db.WithContext(ctx).
		Where("payment_status = ? AND created_at < ?", models.PaymentStatusPending, cutoff).
		Order("payment_checked_at IS NOT NULL, payment_checked_at ASC, created_at ASC").
		Limit(r.batchSize).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load pending orders: %w", err)
	}

	updated := 0
	for _, order := range stale {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		reference := order.ID
		if order.PaymentReference != nil && *order.PaymentReference != "" {
			reference = *order.PaymentReference
		}

		v, err := s.gateway.VerifyTransaction(ctx, reference)
		r.markChecked(ctx, order.ID)
		if err != nil {
			// Never-initialized transactions come back as "reference not found"
			log.Printf("[RECONCILE] could not verify order %s: %v", order.ID, err)
			continue
		}

		var succeeded bool
		switch v.Status {
		case "success":
			succeeded = true
		case "failed", "abandoned", "reversed":
			succeeded = false
		default:
			// ongoing, pending, processing, queued: still in flight
			continue
		}

		if v.Reference == "" {
			v.Reference = reference
		}
		_, changed, err := s.ApplyGatewayOutcome(ctx, GatewayOutcome{
			Reference: v.Reference,
			Succeeded: succeeded,
			Amount:    v.Amount,
			Currency:  v.Currency,
		})
		if err != nil {
			log.Printf("[RECONCILE] order %s not updated from %s verification: %v", order.ID, v.Status, err)
			s.recordVerification(ctx, v, order.ID, models.PaymentEventRejected, err)
			continue
		}
		s.recordVerification(ctx, v, order.ID, models.PaymentEventProcessed, nil)
		if changed {
			updated++
		}
	}

	return updated, nil
}

func (r *PaymentReconciler) markChecked(ctx context.Context, orderID string) {
	s := r.orders
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("payment_checked_at", s.now()).Error
	if err != nil {
		log.Printf("[RECONCILE] failed to mark order %s as checked: %v", orderID, err)
	}
}
