package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusPending   OrderStatus = "pending"
	StatusApproved  OrderStatus = "approved"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// NextStatus merges the authoritative gateway status into the current order
// status. The merge is monotonic: terminal states never move, pending can only
// advance to a terminal state, and a repeated status is reported as unchanged.
func NextStatus(current, incoming OrderStatus) (OrderStatus, bool) {
	if current.Terminal() || incoming == "" || incoming == current {
		return current, false
	}
	switch current {
	case StatusDraft:
		if incoming != StatusCancelled {
			return incoming, true
		}
	case StatusPending:
		if incoming.Terminal() {
			return incoming, true
		}
	}
	return current, false
}

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type DeliveryDetails struct {
	Address      string `json:"address"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	ZipCode      string `json:"zip_code"`
}

type Payer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID            string          `db:"id" json:"id"`
	PaymentID     string          `db:"payment_id" json:"payment_id,omitempty"`
	Status        OrderStatus     `db:"status" json:"status"`
	Items         []Item          `db:"items_json" json:"items"`
	Delivery      DeliveryDetails `db:"delivery" json:"delivery"`
	DeliveryFee   decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Payer         Payer           `db:"payer" json:"payer"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	SettledAt     *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
}

// RecomputeTotals derives subtotal and total from the stored items and the
// stored delivery fee. Amounts coming from the gateway or the webhook payload
// are never written into these fields.
func (o *Order) RecomputeTotals() {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	o.Subtotal = sum.Round(2)
	o.Total = o.Subtotal.Add(o.DeliveryFee).Round(2)
}
