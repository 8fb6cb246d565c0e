package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pastelecana/pastelaria/internal/logger"
	"github.com/pastelecana/pastelaria/internal/types/order"
)

// Dispatcher queues confirmation emails and delivers them outside the
// webhook request path. Sends are retried a bounded number of times;
// exhaustion is logged and the message is dropped. A lost email is
// recoverable manually, a blocked settlement is not, so Notify never blocks
// and never reports failure to the caller.
type Dispatcher struct {
	mailer      Mailer
	from        string
	recipient   string
	maxAttempts int
	interval    time.Duration
	jobs        chan *order.Order
}

func NewDispatcher(mailer Mailer, from, recipient string, maxAttempts int, interval time.Duration) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		mailer:      mailer,
		from:        from,
		recipient:   recipient,
		maxAttempts: maxAttempts,
		interval:    interval,
		jobs:        make(chan *order.Order, 64),
	}
}

// Notify enqueues the confirmation for o. When the queue is full the message
// is dropped with a log line rather than backing up into the reconciler.
func (d *Dispatcher) Notify(o *order.Order) {
	select {
	case d.jobs <- o:
	default:
		logger.Log.Error("notification queue full, dropping confirmation",
			zap.String("order_id", o.ID),
			zap.String("payment_id", o.PaymentID))
	}
}

// Run consumes the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-d.jobs:
			if !ok {
				return
			}
			d.deliver(ctx, o)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, o *order.Order) {
	msg := BuildConfirmation(o, d.from, d.recipient)
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.mailer.Send(ctx, msg)
		if err == nil {
			logger.Log.Info("confirmation email sent",
				zap.String("order_id", o.ID),
				zap.String("payment_id", o.PaymentID),
				zap.Int("attempt", attempt))
			return
		}
		logger.Log.Warn("confirmation email failed",
			zap.String("order_id", o.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.interval):
		}
	}
	logger.Log.Error("confirmation email dropped after retries",
		zap.String("order_id", o.ID),
		zap.String("payment_id", o.PaymentID),
		zap.Int("attempts", d.maxAttempts))
}
