package storage

import (
	"context"

	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

// OrderRepository holds the durable order records. Orders are never deleted;
// terminal orders are retained for audit.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrderByID(ctx context.Context, id string) (*order.Order, error)
	FindOrderByPaymentID(ctx context.Context, paymentID string) (*order.Order, error)
	SaveOrder(ctx context.Context, o *order.Order) error
	ListOrders(ctx context.Context) ([]order.Order, error)
}

// LedgerRepository provides per-payment-id mutual exclusion and replay
// detection. AcquirePayment must be atomic across concurrent callers and
// across process restarts.
type LedgerRepository interface {
	AcquirePayment(ctx context.Context, paymentID string) (payment.AcquireResult, error)
	ReleasePayment(ctx context.Context, paymentID string, outcome payment.Outcome) error
}

// Storage объединяет все репозитории: заказы и ledger платежей.
type Storage interface {
	OrderRepository
	LedgerRepository

	Ping(ctx context.Context) error
	Close() error
}
