package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pastelecana/pastelaria/internal/gateway"
)

type Handler struct {
	svc  *Service
	fees FeeTable
}

func NewHandler(svc *Service, fees FeeTable) *Handler {
	return &Handler{svc: svc, fees: fees}
}

// writeCheckout maps checkout errors to HTTP and writes the result on
// success. All three payment flows share the same taxonomy.
func writeCheckout(w http.ResponseWriter, res any, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrPayerRequired), errors.Is(err, ErrInvalidFee),
		errors.Is(err, ErrTokenRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, gateway.ErrUnavailable):
		http.Error(w, "payment gateway unavailable", http.StatusBadGateway)
		return
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.svc.CreateDraft(r.Context(), &req)
	writeCheckout(w, res, err)
}

func (h *Handler) CreatePixPayment(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.svc.CreatePixOrder(r.Context(), &req)
	writeCheckout(w, res, err)
}

func (h *Handler) CreateCardPayment(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.svc.CreateCardOrder(r.Context(), &req)
	writeCheckout(w, res, err)
}

type quoteReq struct {
	DistanceKm decimal.Decimal `json:"distance_km"`
}

func (h *Handler) QuoteDelivery(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.DistanceKm.IsNegative() {
		http.Error(w, "distance_km must be non-negative", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.fees.Quote(req.DistanceKm))
}
