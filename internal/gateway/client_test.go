package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

func newTestClient(srv *httptest.Server) *HTTPClient {
	return &HTTPClient{
		Client:      srv.Client(),
		APIAddress:  srv.URL,
		AccessToken: "test-token",
		FrontendURL: "http://localhost:5173",
	}
}

func TestFetchPaymentApproved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 123,
			"status": "approved",
			"transaction_amount": 14.00,
			"external_reference": "ord-1",
			"payment_method_id": "pix",
			"payer": {"email": "maria@example.com", "first_name": "Maria", "last_name": "Silva"}
		}`))
	}))
	defer srv.Close()

	details, err := newTestClient(srv).FetchPayment(context.Background(), "123")
	assert.NoError(t, err)
	assert.Equal(t, "123", details.ID)
	assert.Equal(t, payment.StatusApproved, details.Status)
	assert.True(t, details.TransactionAmount.Equal(decimal.RequireFromString("14.00")))
	assert.Equal(t, "ord-1", details.ExternalReference)
	assert.Equal(t, "maria@example.com", details.PayerEmail)
}

func TestFetchPaymentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPayment(context.Background(), "999")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestFetchPaymentServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPayment(context.Background(), "123")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchPaymentTooManyRequestsIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchPayment(context.Background(), "123")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreatePreference(t *testing.T) {
	var got preferenceBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "pref-1", "init_point": "https://mp.example/init"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).CreatePreference(context.Background(), &PreferenceRequest{
		Items: []order.Item{
			{Name: "Pastel de queijo", Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
		},
		Payer:             order.Payer{Name: "Maria", Email: "maria@example.com"},
		ExternalReference: "ord-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "pref-1", res.ID)
	assert.Equal(t, "https://mp.example/init", res.InitPoint)

	assert.Equal(t, "ord-1", got.ExternalReference)
	assert.Equal(t, "approved", got.AutoReturn)
	assert.Equal(t, "http://localhost:5173/checkout?status=approved", got.BackURLs.Success)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "Pastel de queijo", got.Items[0].Title)
}

func TestCreatePixPayment(t *testing.T) {
	var got createPaymentBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": 456,
			"status": "pending",
			"point_of_interaction": {"transaction_data": {
				"qr_code": "000201qr",
				"qr_code_base64": "aGVsbG8=",
				"ticket_url": "https://mp.example/ticket"
			}}
		}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).CreatePixPayment(context.Background(), &PixPaymentRequest{
		Amount:            decimal.RequireFromString("17.50"),
		Description:       "Pedido Pastelaria Pastel & Cana",
		Payer:             order.Payer{Name: "Maria", Email: "maria@example.com"},
		ExternalReference: "ord-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "456", res.ID)
	assert.Equal(t, payment.StatusPending, res.Status)
	assert.Equal(t, "000201qr", res.QRCode)
	assert.Equal(t, "https://mp.example/ticket", res.TicketURL)

	assert.Equal(t, "pix", got.PaymentMethodID)
	assert.Equal(t, "ord-1", got.ExternalReference)
	assert.Equal(t, "maria@example.com", got.Payer.Email)
	assert.True(t, got.TransactionAmount.Equal(decimal.RequireFromString("17.50")))
}

func TestCreatePixPaymentWithoutQRCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 456, "status": "pending"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreatePixPayment(context.Background(), &PixPaymentRequest{
		Amount: decimal.RequireFromString("17.50"),
		Payer:  order.Payer{Name: "Maria", Email: "maria@example.com"},
	})
	assert.Error(t, err, "a pix payment without QR data is unusable")
}

func TestCreateCardPayment(t *testing.T) {
	var got createPaymentBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 789, "status": "approved", "status_detail": "accredited"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).CreateCardPayment(context.Background(), &CardPaymentRequest{
		Amount:          decimal.RequireFromString("17.50"),
		Token:           "tok-1",
		Installments:    3,
		PaymentMethodID: "visa",
		Payer:           order.Payer{Name: "Maria", Email: "maria@example.com"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "789", res.ID)
	assert.Equal(t, payment.StatusApproved, res.Status)
	assert.Equal(t, "accredited", res.StatusDetail)

	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, 3, got.Installments)
	assert.Equal(t, "visa", got.PaymentMethodID)
}
