package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pastelecana/pastelaria/internal/gateway"
	"github.com/pastelecana/pastelaria/internal/types/order"
)

var (
	ErrNoItems       = errors.New("order has no items")
	ErrInvalidItem   = errors.New("item quantity must be positive and unit price non-negative")
	ErrPayerRequired = errors.New("payer name and email are required")
	ErrInvalidFee    = errors.New("delivery fee must be non-negative")
	ErrTokenRequired = errors.New("card token is required")
)

type OrderWriter interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	SaveOrder(ctx context.Context, o *order.Order) error
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.PreferenceResult, error)
	CreatePixPayment(ctx context.Context, req *gateway.PixPaymentRequest) (*gateway.PixPaymentResult, error)
	CreateCardPayment(ctx context.Context, req *gateway.CardPaymentRequest) (*gateway.CardPaymentResult, error)
}

type Service struct {
	orders OrderWriter
	gate   PaymentGateway
}

func NewService(orders OrderWriter, gate PaymentGateway) *Service {
	return &Service{orders: orders, gate: gate}
}

type DraftRequest struct {
	Items         []order.Item          `json:"items"`
	Payer         order.Payer           `json:"payer"`
	Delivery      order.DeliveryDetails `json:"delivery"`
	DeliveryFee   decimal.Decimal       `json:"delivery_fee"`
	PaymentMethod string                `json:"payment_method"`
}

type CheckoutResult struct {
	OrderID      string `json:"order_id"`
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

// newDraft validates the request and persists a draft order with totals
// recomputed server-side. method overrides the client-supplied payment
// method when the flow fixes it (pix, card).
func (s *Service) newDraft(ctx context.Context, req *DraftRequest, method string) (*order.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return nil, ErrInvalidItem
		}
	}
	if req.Payer.Name == "" || req.Payer.Email == "" {
		return nil, ErrPayerRequired
	}
	if req.DeliveryFee.IsNegative() {
		return nil, ErrInvalidFee
	}
	if method == "" {
		method = req.PaymentMethod
	}

	o := &order.Order{
		ID:            uuid.NewString(),
		Status:        order.StatusDraft,
		Items:         req.Items,
		Delivery:      req.Delivery,
		DeliveryFee:   req.DeliveryFee.Round(2),
		PaymentMethod: method,
		Payer:         req.Payer,
		CreatedAt:     time.Now().UTC(),
	}
	o.RecomputeTotals()

	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create draft order: %w", err)
	}
	return o, nil
}

// CreateDraft persists a draft order and registers a checkout preference with
// the gateway. The order id travels to the gateway as the external reference,
// which is what lets a later bare payment notification find its way back.
func (s *Service) CreateDraft(ctx context.Context, req *DraftRequest) (*CheckoutResult, error) {
	o, err := s.newDraft(ctx, req, "")
	if err != nil {
		return nil, err
	}

	pref, err := s.gate.CreatePreference(ctx, &gateway.PreferenceRequest{
		Items:             o.Items,
		Payer:             o.Payer,
		ExternalReference: o.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create preference for order %s: %w", o.ID, err)
	}

	return &CheckoutResult{OrderID: o.ID, PreferenceID: pref.ID, InitPoint: pref.InitPoint}, nil
}

type PixResult struct {
	OrderID      string `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// CreatePixOrder persists a draft and opens a direct pix payment for its
// total. The returned QR code is rendered by the storefront; approval still
// arrives through the webhook.
func (s *Service) CreatePixOrder(ctx context.Context, req *DraftRequest) (*PixResult, error) {
	o, err := s.newDraft(ctx, req, "pix")
	if err != nil {
		return nil, err
	}

	pix, err := s.gate.CreatePixPayment(ctx, &gateway.PixPaymentRequest{
		Amount:            o.Total,
		Description:       "Pedido Pastelaria Pastel & Cana",
		Payer:             o.Payer,
		ExternalReference: o.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create pix payment for order %s: %w", o.ID, err)
	}

	if err := s.linkPayment(ctx, o, pix.ID); err != nil {
		return nil, err
	}
	return &PixResult{
		OrderID:      o.ID,
		PaymentID:    pix.ID,
		Status:       string(pix.Status),
		QRCode:       pix.QRCode,
		QRCodeBase64: pix.QRCodeBase64,
		TicketURL:    pix.TicketURL,
	}, nil
}

type CardRequest struct {
	DraftRequest
	Token           string `json:"token"`
	Installments    int    `json:"installments"`
	PaymentMethodID string `json:"payment_method_id"`
}

type CardResult struct {
	OrderID      string `json:"order_id"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail,omitempty"`
}

// CreateCardOrder persists a draft and charges the storefront-issued card
// token for its total. The synchronous status is informational only; the
// order settles through the webhook like every other payment.
func (s *Service) CreateCardOrder(ctx context.Context, req *CardRequest) (*CardResult, error) {
	if req.Token == "" {
		return nil, ErrTokenRequired
	}
	o, err := s.newDraft(ctx, &req.DraftRequest, "card")
	if err != nil {
		return nil, err
	}

	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	card, err := s.gate.CreateCardPayment(ctx, &gateway.CardPaymentRequest{
		Amount:            o.Total,
		Token:             req.Token,
		Installments:      installments,
		PaymentMethodID:   req.PaymentMethodID,
		Payer:             o.Payer,
		ExternalReference: o.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create card payment for order %s: %w", o.ID, err)
	}

	if err := s.linkPayment(ctx, o, card.ID); err != nil {
		return nil, err
	}
	return &CardResult{
		OrderID:      o.ID,
		PaymentID:    card.ID,
		Status:       string(card.Status),
		StatusDetail: card.StatusDetail,
	}, nil
}

// linkPayment records the gateway payment id on the draft so the reconciler
// can locate it directly, without falling back to the external reference.
func (s *Service) linkPayment(ctx context.Context, o *order.Order, paymentID string) error {
	o.PaymentID = paymentID
	if err := s.orders.SaveOrder(ctx, o); err != nil {
		return fmt.Errorf("link payment %s to order %s: %w", paymentID, o.ID, err)
	}
	return nil
}

// Quote computes the delivery fee for a distance already resolved by the
// caller. fee = base + perKm × distance, rounded to cents.
type Quote struct {
	DistanceKm  decimal.Decimal `json:"distance_km"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

type FeeTable struct {
	Base  decimal.Decimal
	PerKm decimal.Decimal
}

func (t FeeTable) Quote(distanceKm decimal.Decimal) Quote {
	return Quote{
		DistanceKm:  distanceKm,
		DeliveryFee: t.Base.Add(t.PerKm.Mul(distanceKm)).Round(2),
	}
}
