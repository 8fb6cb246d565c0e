package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pastelecana/pastelaria/internal/gateway"
	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

type mockOrderWriter struct {
	createFn func(ctx context.Context, o *order.Order) error
	saveFn   func(ctx context.Context, o *order.Order) error
	created  []*order.Order
	saved    []*order.Order
}

func (m *mockOrderWriter) CreateOrder(ctx context.Context, o *order.Order) error {
	m.created = append(m.created, o)
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	return nil
}

func (m *mockOrderWriter) SaveOrder(ctx context.Context, o *order.Order) error {
	m.saved = append(m.saved, o)
	if m.saveFn != nil {
		return m.saveFn(ctx, o)
	}
	return nil
}

type mockGateway struct {
	prefFn func(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.PreferenceResult, error)
	pixFn  func(ctx context.Context, req *gateway.PixPaymentRequest) (*gateway.PixPaymentResult, error)
	cardFn func(ctx context.Context, req *gateway.CardPaymentRequest) (*gateway.CardPaymentResult, error)

	prefRequests []*gateway.PreferenceRequest
	pixRequests  []*gateway.PixPaymentRequest
	cardRequests []*gateway.CardPaymentRequest
}

func (m *mockGateway) CreatePreference(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.PreferenceResult, error) {
	m.prefRequests = append(m.prefRequests, req)
	if m.prefFn != nil {
		return m.prefFn(ctx, req)
	}
	return &gateway.PreferenceResult{ID: "pref-1", InitPoint: "https://mp.example/init"}, nil
}

func (m *mockGateway) CreatePixPayment(ctx context.Context, req *gateway.PixPaymentRequest) (*gateway.PixPaymentResult, error) {
	m.pixRequests = append(m.pixRequests, req)
	if m.pixFn != nil {
		return m.pixFn(ctx, req)
	}
	return &gateway.PixPaymentResult{
		ID:           "pay-pix-1",
		Status:       payment.StatusPending,
		QRCode:       "000201qr",
		QRCodeBase64: "aGVsbG8=",
		TicketURL:    "https://mp.example/ticket",
	}, nil
}

func (m *mockGateway) CreateCardPayment(ctx context.Context, req *gateway.CardPaymentRequest) (*gateway.CardPaymentResult, error) {
	m.cardRequests = append(m.cardRequests, req)
	if m.cardFn != nil {
		return m.cardFn(ctx, req)
	}
	return &gateway.CardPaymentResult{ID: "pay-card-1", Status: payment.StatusApproved, StatusDetail: "accredited"}, nil
}

func validDraft() *DraftRequest {
	return &DraftRequest{
		Items: []order.Item{
			{Name: "Pastel de queijo", Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
			{Name: "Caldo de cana", Quantity: 1, UnitPrice: decimal.RequireFromString("3.50")},
		},
		Payer:         order.Payer{Name: "Maria", Email: "maria@example.com"},
		Delivery:      order.DeliveryDetails{Address: "Rua A", Number: "10", Neighborhood: "Centro", City: "Recife", ZipCode: "50000-000"},
		DeliveryFee:   decimal.RequireFromString("4.00"),
		PaymentMethod: "checkout_pro",
	}
}

func TestCreateDraftComputesTotals(t *testing.T) {
	orders := &mockOrderWriter{}
	gate := &mockGateway{}
	svc := NewService(orders, gate)

	res, err := svc.CreateDraft(context.Background(), validDraft())
	assert.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, "pref-1", res.PreferenceID)

	assert.Len(t, orders.created, 1)
	o := orders.created[0]
	assert.Equal(t, order.StatusDraft, o.Status)
	assert.Equal(t, "13.50", o.Subtotal.StringFixed(2))
	assert.Equal(t, "17.50", o.Total.StringFixed(2))
	assert.Empty(t, o.PaymentID, "draft has no payment yet")
}

func TestCreateDraftSetsExternalReference(t *testing.T) {
	orders := &mockOrderWriter{}
	gate := &mockGateway{}
	svc := NewService(orders, gate)

	res, err := svc.CreateDraft(context.Background(), validDraft())
	assert.NoError(t, err)
	assert.Len(t, gate.prefRequests, 1)
	assert.Equal(t, res.OrderID, gate.prefRequests[0].ExternalReference,
		"the order id must travel to the gateway as the correlation key")
}

func TestCreateDraftValidation(t *testing.T) {
	svc := NewService(&mockOrderWriter{}, &mockGateway{})

	tests := []struct {
		name   string
		mutate func(*DraftRequest)
		want   error
	}{
		{"no items", func(r *DraftRequest) { r.Items = nil }, ErrNoItems},
		{"zero quantity", func(r *DraftRequest) { r.Items[0].Quantity = 0 }, ErrInvalidItem},
		{"negative price", func(r *DraftRequest) { r.Items[0].UnitPrice = decimal.RequireFromString("-1") }, ErrInvalidItem},
		{"missing payer name", func(r *DraftRequest) { r.Payer.Name = "" }, ErrPayerRequired},
		{"missing payer email", func(r *DraftRequest) { r.Payer.Email = "" }, ErrPayerRequired},
		{"negative fee", func(r *DraftRequest) { r.DeliveryFee = decimal.RequireFromString("-0.01") }, ErrInvalidFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validDraft()
			tt.mutate(req)
			_, err := svc.CreateDraft(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateDraftGatewayFailure(t *testing.T) {
	orders := &mockOrderWriter{}
	gate := &mockGateway{
		prefFn: func(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.PreferenceResult, error) {
			return nil, gateway.ErrUnavailable
		},
	}
	svc := NewService(orders, gate)

	_, err := svc.CreateDraft(context.Background(), validDraft())
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Len(t, orders.created, 1, "draft stays for a later retry of checkout")
}

func TestCreateDraftStoreFailure(t *testing.T) {
	orders := &mockOrderWriter{createFn: func(ctx context.Context, o *order.Order) error {
		return errors.New("db down")
	}}
	gate := &mockGateway{}
	svc := NewService(orders, gate)

	_, err := svc.CreateDraft(context.Background(), validDraft())
	assert.Error(t, err)
	assert.Empty(t, gate.prefRequests, "no preference without a persisted draft")
}

func TestCreatePixOrder(t *testing.T) {
	orders := &mockOrderWriter{}
	gate := &mockGateway{}
	svc := NewService(orders, gate)

	res, err := svc.CreatePixOrder(context.Background(), validDraft())
	assert.NoError(t, err)
	assert.Equal(t, "pay-pix-1", res.PaymentID)
	assert.Equal(t, "000201qr", res.QRCode)
	assert.Equal(t, "aGVsbG8=", res.QRCodeBase64)

	assert.Len(t, orders.created, 1)
	assert.Equal(t, "pix", orders.created[0].PaymentMethod)

	assert.Len(t, gate.pixRequests, 1)
	req := gate.pixRequests[0]
	assert.Equal(t, res.OrderID, req.ExternalReference)
	assert.Equal(t, "17.50", req.Amount.StringFixed(2), "pix charges the server-side total")

	assert.Len(t, orders.saved, 1, "payment id is linked back to the draft")
	assert.Equal(t, "pay-pix-1", orders.saved[0].PaymentID)
}

func TestCreatePixOrderGatewayFailure(t *testing.T) {
	orders := &mockOrderWriter{}
	gate := &mockGateway{
		pixFn: func(ctx context.Context, req *gateway.PixPaymentRequest) (*gateway.PixPaymentResult, error) {
			return nil, gateway.ErrUnavailable
		},
	}
	svc := NewService(orders, gate)

	_, err := svc.CreatePixOrder(context.Background(), validDraft())
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Empty(t, orders.saved, "no payment link without a gateway payment")
}

func TestCreateCardOrder(t *testing.T) {
	orders := &mockOrderWriter{}
	gate := &mockGateway{}
	svc := NewService(orders, gate)

	req := &CardRequest{DraftRequest: *validDraft(), Token: "tok-1", PaymentMethodID: "visa"}
	res, err := svc.CreateCardOrder(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, "pay-card-1", res.PaymentID)
	assert.Equal(t, "approved", res.Status)

	assert.Len(t, gate.cardRequests, 1)
	sent := gate.cardRequests[0]
	assert.Equal(t, "tok-1", sent.Token)
	assert.Equal(t, 1, sent.Installments, "installments default to one")
	assert.Equal(t, res.OrderID, sent.ExternalReference)

	assert.Len(t, orders.created, 1)
	assert.Equal(t, "card", orders.created[0].PaymentMethod)
	assert.Len(t, orders.saved, 1)
	assert.Equal(t, "pay-card-1", orders.saved[0].PaymentID)
}

func TestCreateCardOrderRequiresToken(t *testing.T) {
	orders := &mockOrderWriter{}
	svc := NewService(orders, &mockGateway{})

	_, err := svc.CreateCardOrder(context.Background(), &CardRequest{DraftRequest: *validDraft()})
	assert.ErrorIs(t, err, ErrTokenRequired)
	assert.Empty(t, orders.created, "no draft is written for an unchargeable request")
}

func TestQuote(t *testing.T) {
	fees := FeeTable{Base: decimal.RequireFromString("2.00"), PerKm: decimal.RequireFromString("2.00")}

	q := fees.Quote(decimal.RequireFromString("3.7"))
	assert.Equal(t, "9.40", q.DeliveryFee.StringFixed(2))

	q = fees.Quote(decimal.Zero)
	assert.Equal(t, "2.00", q.DeliveryFee.StringFixed(2))
}
