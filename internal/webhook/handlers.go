package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pastelecana/pastelaria/internal/gateway"
	"github.com/pastelecana/pastelaria/internal/logger"
	"github.com/pastelecana/pastelaria/internal/reconciler"
	"github.com/pastelecana/pastelaria/internal/types/payment"
)

type Reconciler interface {
	Reconcile(ctx context.Context, paymentID string) error
}

type Handler struct {
	svc Reconciler
}

func NewHandler(svc Reconciler) *Handler {
	return &Handler{svc: svc}
}

type event struct {
	Type string `json:"type"`
	Data struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// paymentID normalizes data.id, which the gateway sends either as a string
// or as a bare number depending on the notification channel.
func (e *event) paymentID() string {
	return strings.Trim(string(e.Data.ID), `"`)
}

// Handle is the gateway-facing webhook endpoint. Response codes steer the
// gateway's redelivery: 200 and 4xx stop it, 5xx makes it retry later.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var ev event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	id := ev.paymentID()
	if ev.Type == "" || id == "" {
		logger.Log.Warn("webhook missing type or data.id")
		http.Error(w, "type and data.id are required", http.StatusBadRequest)
		return
	}

	n := payment.Notification{PaymentID: id, Type: ev.Type, ReceivedAt: time.Now().UTC()}
	if n.Type != "payment" {
		logger.Log.Info("ignoring non-payment webhook topic",
			zap.String("type", n.Type),
			zap.String("payment_id", n.PaymentID))
		w.WriteHeader(http.StatusOK)
		return
	}
	logger.Log.Info("payment webhook received",
		zap.String("payment_id", n.PaymentID),
		zap.Time("received_at", n.ReceivedAt))

	err := h.svc.Reconcile(r.Context(), n.PaymentID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, gateway.ErrPaymentNotFound), errors.Is(err, reconciler.ErrOrderNotFound):
		// Redelivering can never succeed for these; ack to stop it.
		logger.Log.Warn("webhook acknowledged without settlement",
			zap.String("payment_id", id),
			zap.Error(err))
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, reconciler.ErrInProgress):
		logger.Log.Info("concurrent reconciliation, asking gateway to redeliver",
			zap.String("payment_id", id))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.Log.Error("webhook processing failed",
			zap.String("payment_id", id),
			zap.Error(err))
		http.Error(w, "internal error", http.StatusServiceUnavailable)
	}
}
