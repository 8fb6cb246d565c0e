package reconciler

import (
	"context"

	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

type OrderRepository interface {
	FindOrderByID(ctx context.Context, id string) (*order.Order, error)
	FindOrderByPaymentID(ctx context.Context, paymentID string) (*order.Order, error)
	SaveOrder(ctx context.Context, o *order.Order) error
}

type Ledger interface {
	AcquirePayment(ctx context.Context, paymentID string) (payment.AcquireResult, error)
	ReleasePayment(ctx context.Context, paymentID string, outcome payment.Outcome) error
}

type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*payment.Details, error)
}

// Notifier delivers the confirmation for a settled order. Implementations
// must not block the caller; delivery failure never affects settlement.
type Notifier interface {
	Notify(o *order.Order)
}
