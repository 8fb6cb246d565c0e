package reconciler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pastelecana/pastelaria/internal/logger"
	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

var (
	// ErrOrderNotFound: the payment exists at the gateway but no order is
	// linked to it and the external reference resolves to nothing. The event
	// is acknowledged; an order is never fabricated from a bare payment.
	ErrOrderNotFound = errors.New("no order linked to payment")
	// ErrInProgress: another reconciliation holds the per-payment lock.
	// Surfaced as retryable so the gateway redelivers later.
	ErrInProgress = errors.New("reconciliation already in progress")
)

type Service struct {
	ledger       Ledger
	gate         PaymentFetcher
	orders       OrderRepository
	notifier     Notifier
	storeTimeout time.Duration
}

func NewService(ledger Ledger, gate PaymentFetcher, orders OrderRepository, notifier Notifier, storeTimeout time.Duration) *Service {
	return &Service{
		ledger:       ledger,
		gate:         gate,
		orders:       orders,
		notifier:     notifier,
		storeTimeout: storeTimeout,
	}
}

// Reconcile drives one payment id to its settled state. All webhook
// redeliveries for the same id funnel through here; the ledger guarantees
// that at most one call per id runs the body at a time and that a completed
// id is never processed twice.
func (s *Service) Reconcile(ctx context.Context, paymentID string) error {
	res, err := s.ledger.AcquirePayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("acquire ledger for %s: %w", paymentID, err)
	}
	switch res {
	case payment.AlreadyDone:
		logger.Log.Info("payment already reconciled", zap.String("payment_id", paymentID))
		return nil
	case payment.AlreadyInProgress:
		return fmt.Errorf("payment %s: %w", paymentID, ErrInProgress)
	}

	outcome := payment.OutcomeFailed
	defer func() {
		// The request context may already be dead here (gateway aborts the
		// delivery, per-call timeout fired). The release must still land,
		// otherwise the in_progress row wedges the payment forever.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
		defer cancel()
		if err := s.ledger.ReleasePayment(releaseCtx, paymentID, outcome); err != nil {
			logger.Log.Error("ledger release failed",
				zap.String("payment_id", paymentID),
				zap.String("outcome", string(outcome)),
				zap.Error(err))
		}
	}()

	details, err := s.gate.FetchPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	o, err := s.locateOrder(ctx, details)
	if err != nil {
		return err
	}

	next, changed := order.NextStatus(o.Status, details.Status.OrderStatus())
	if !changed {
		logger.Log.Info("stale or duplicate notification, status unchanged",
			zap.String("payment_id", paymentID),
			zap.String("status", string(o.Status)))
		// A settled order is done for good; a still-pending one must stay
		// re-acquirable so the approval webhook can land later.
		if o.Status.Terminal() {
			outcome = payment.OutcomeDone
		} else {
			outcome = payment.OutcomePending
		}
		return nil
	}

	o.PaymentID = details.ID
	o.Status = next
	if next.Terminal() && o.SettledAt == nil {
		now := time.Now().UTC()
		o.SettledAt = &now
	}
	// Amounts are always rebuilt from the stored items; nothing from the
	// notification or the gateway response is trusted for money.
	o.RecomputeTotals()

	saveCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.orders.SaveOrder(saveCtx, o); err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}

	// Only a terminal settlement closes the ledger record. A payment that
	// landed as pending (pix waiting for the payer) must be processed again
	// when the gateway reports its final state. Once terminal, done is
	// recorded even if the notification fails.
	if next.Terminal() {
		outcome = payment.OutcomeDone
	} else {
		outcome = payment.OutcomePending
	}

	logger.Log.Info("order reconciled",
		zap.String("payment_id", paymentID),
		zap.String("order_id", o.ID),
		zap.String("status", string(next)))

	if next == order.StatusApproved {
		s.notifier.Notify(o)
	}
	return nil
}

// locateOrder finds the order for a payment: first by the linked payment id,
// then by the external reference attached at preference creation. With
// neither match the reconciler fails closed.
func (s *Service) locateOrder(ctx context.Context, details *payment.Details) (*order.Order, error) {
	findCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	o, err := s.orders.FindOrderByPaymentID(findCtx, details.ID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find order by payment %s: %w", details.ID, err)
	}

	if details.ExternalReference != "" {
		o, err = s.orders.FindOrderByID(findCtx, details.ExternalReference)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find order by reference %s: %w", details.ExternalReference, err)
		}
	}

	logger.Log.Warn("payment has no matching order, failing closed",
		zap.String("payment_id", details.ID),
		zap.String("external_reference", details.ExternalReference))
	return nil, fmt.Errorf("payment %s: %w", details.ID, ErrOrderNotFound)
}
