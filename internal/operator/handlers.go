package operator

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pastelecana/pastelaria/internal/types/order"
)

type OrderLister interface {
	ListOrders(ctx context.Context) ([]order.Order, error)
}

type Handler struct {
	svc    *Service
	orders OrderLister
}

func NewHandler(svc *Service, orders OrderLister) *Handler {
	return &Handler{svc: svc, orders: orders}
}

type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.svc.Authenticate(req.Login, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// ListOrders returns every order, newest first. Orders are never deleted, so
// this doubles as the settlement audit trail.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}
