package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pastelecana/pastelaria/internal/types/order"
)

// Status is a payment status as reported by the gateway.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusPending   Status = "pending"
	StatusInProcess Status = "in_process"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// OrderStatus maps a gateway payment status onto the order state machine.
// Unknown statuses map to "" and are ignored by the merge.
func (s Status) OrderStatus() order.OrderStatus {
	switch s {
	case StatusApproved:
		return order.StatusApproved
	case StatusPending, StatusInProcess:
		return order.StatusPending
	case StatusRejected:
		return order.StatusRejected
	case StatusCancelled:
		return order.StatusCancelled
	}
	return ""
}

// Details is the authoritative view of one payment, fetched from the gateway.
// The webhook payload itself is never trusted for any of these fields.
type Details struct {
	ID                string
	Status            Status
	TransactionAmount decimal.Decimal
	PayerFirstName    string
	PayerLastName     string
	PayerEmail        string
	PaymentMethodID   string
	ExternalReference string
}

// Notification is one inbound gateway callback. It is not persisted beyond
// the ledger key; many notifications may refer to the same payment.
type Notification struct {
	PaymentID  string
	Type       string
	ReceivedAt time.Time
}

type AcquireResult int

const (
	Acquired AcquireResult = iota
	AlreadyDone
	AlreadyInProgress
)

// Outcome is recorded when the per-payment lock is released. Only OutcomeDone
// makes the ledger record permanent; a pending or failed outcome leaves the
// payment re-acquirable so a later notification can advance it.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)
