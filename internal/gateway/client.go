package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

var (
	// ErrPaymentNotFound means the gateway has no payment with that id.
	// Terminal for the triggering event: acknowledged, never retried.
	ErrPaymentNotFound = errors.New("payment not found at gateway")
	// ErrUnavailable covers network failures, timeouts, 429 and 5xx.
	// Retryable via gateway redelivery.
	ErrUnavailable = errors.New("gateway unavailable")
)

// Client resolves the authoritative state of a payment and initiates new
// ones (checkout preference, direct pix, tokenized card). The webhook payload
// is never a source of payment status; it only triggers FetchPayment.
type Client interface {
	FetchPayment(ctx context.Context, paymentID string) (*payment.Details, error)
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*PreferenceResult, error)
	CreatePixPayment(ctx context.Context, req *PixPaymentRequest) (*PixPaymentResult, error)
	CreateCardPayment(ctx context.Context, req *CardPaymentRequest) (*CardPaymentResult, error)
}

type PreferenceRequest struct {
	Items             []order.Item
	Payer             order.Payer
	ExternalReference string
}

type PreferenceResult struct {
	ID        string
	InitPoint string
}

type HTTPClient struct {
	Client      *http.Client
	APIAddress  string
	AccessToken string
	FrontendURL string
}

type paymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	ExternalReference string          `json:"external_reference"`
	PaymentMethodID   string          `json:"payment_method_id"`
	Payer             struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"payer"`
}

func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*payment.Details, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", strings.TrimRight(c.APIAddress, "/"), paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: id %s", ErrPaymentNotFound, paymentID)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: too many requests (429)", ErrUnavailable)
	default:
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status fetching payment %s: %d", paymentID, resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &payment.Details{
		ID:                pr.ID.String(),
		Status:            payment.Status(pr.Status),
		TransactionAmount: pr.TransactionAmount,
		PayerFirstName:    pr.Payer.FirstName,
		PayerLastName:     pr.Payer.LastName,
		PayerEmail:        pr.Payer.Email,
		PaymentMethodID:   pr.PaymentMethodID,
		ExternalReference: pr.ExternalReference,
	}, nil
}

type preferenceItem struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type preferenceBody struct {
	Items []preferenceItem `json:"items"`
	Payer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"payer"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	} `json:"back_urls"`
	AutoReturn        string `json:"auto_return"`
	ExternalReference string `json:"external_reference"`
}

// CreatePreference registers a checkout preference with the gateway. The
// external reference carries the draft order id, which is how a later bare
// payment notification is correlated back to its order.
func (c *HTTPClient) CreatePreference(ctx context.Context, pref *PreferenceRequest) (*PreferenceResult, error) {
	var body preferenceBody
	for _, it := range pref.Items {
		body.Items = append(body.Items, preferenceItem{Title: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	body.Payer.Name = pref.Payer.Name
	body.Payer.Email = pref.Payer.Email
	body.BackURLs.Success = c.FrontendURL + "/checkout?status=approved"
	body.BackURLs.Failure = c.FrontendURL + "/checkout?status=rejected"
	body.BackURLs.Pending = c.FrontendURL + "/checkout?status=pending"
	body.AutoReturn = "approved"
	body.ExternalReference = pref.ExternalReference

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal preference: %w", err)
	}
	url := strings.TrimRight(c.APIAddress, "/") + "/checkout/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status creating preference: %d", resp.StatusCode)
	}

	var out struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &PreferenceResult{ID: out.ID, InitPoint: out.InitPoint}, nil
}

type PixPaymentRequest struct {
	Amount            decimal.Decimal
	Description       string
	Payer             order.Payer
	ExternalReference string
}

type PixPaymentResult struct {
	ID           string
	Status       payment.Status
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
}

type CardPaymentRequest struct {
	Amount            decimal.Decimal
	Token             string
	Installments      int
	PaymentMethodID   string
	Payer             order.Payer
	ExternalReference string
}

type CardPaymentResult struct {
	ID           string
	Status       payment.Status
	StatusDetail string
}

type createPaymentBody struct {
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Description       string          `json:"description,omitempty"`
	PaymentMethodID   string          `json:"payment_method_id"`
	Token             string          `json:"token,omitempty"`
	Installments      int             `json:"installments,omitempty"`
	ExternalReference string          `json:"external_reference"`
	Payer             struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name,omitempty"`
	} `json:"payer"`
}

type createPaymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreatePixPayment creates a direct pix payment and returns the QR code data
// the storefront renders. The payment settles asynchronously through the
// webhook like any other.
func (c *HTTPClient) CreatePixPayment(ctx context.Context, pr *PixPaymentRequest) (*PixPaymentResult, error) {
	body := createPaymentBody{
		TransactionAmount: pr.Amount,
		Description:       pr.Description,
		PaymentMethodID:   "pix",
		ExternalReference: pr.ExternalReference,
	}
	body.Payer.Email = pr.Payer.Email
	body.Payer.FirstName = pr.Payer.Name

	out, err := c.postPayment(ctx, &body)
	if err != nil {
		return nil, err
	}
	if out.PointOfInteraction.TransactionData.QRCode == "" {
		return nil, fmt.Errorf("pix payment %s: no QR code data in response", out.ID)
	}
	return &PixPaymentResult{
		ID:           out.ID.String(),
		Status:       payment.Status(out.Status),
		QRCode:       out.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: out.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:    out.PointOfInteraction.TransactionData.TicketURL,
	}, nil
}

// CreateCardPayment charges a card token obtained by the storefront. The
// synchronous status is informational; settlement still goes through the
// webhook and the reconciler.
func (c *HTTPClient) CreateCardPayment(ctx context.Context, cr *CardPaymentRequest) (*CardPaymentResult, error) {
	body := createPaymentBody{
		TransactionAmount: cr.Amount,
		PaymentMethodID:   cr.PaymentMethodID,
		Token:             cr.Token,
		Installments:      cr.Installments,
		ExternalReference: cr.ExternalReference,
	}
	body.Payer.Email = cr.Payer.Email

	out, err := c.postPayment(ctx, &body)
	if err != nil {
		return nil, err
	}
	return &CardPaymentResult{
		ID:           out.ID.String(),
		Status:       payment.Status(out.Status),
		StatusDetail: out.StatusDetail,
	}, nil
}

func (c *HTTPClient) postPayment(ctx context.Context, body *createPaymentBody) (*createPaymentResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}
	url := strings.TrimRight(c.APIAddress, "/") + "/v1/payments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	// The gateway deduplicates retried creates on this key.
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status creating payment: %d", resp.StatusCode)
	}

	var out createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &out, nil
}
