package router

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pastelecana/pastelaria/internal/checkout"
	"github.com/pastelecana/pastelaria/internal/logger"
	"github.com/pastelecana/pastelaria/internal/middleware"
	"github.com/pastelecana/pastelaria/internal/operator"
	"github.com/pastelecana/pastelaria/internal/webhook"
)

func NewRouter(
	webhookH *webhook.Handler,
	checkoutH *checkout.Handler,
	operatorH *operator.Handler,
	operatorSvc *operator.Service,
	jwtSecret []byte,
	webhookSecret string,
) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.WebhookSignature(webhookSecret)).
			Post("/webhook/mercadopago", webhookH.Handle)

		r.Post("/orders", checkoutH.CreateOrder)
		r.Post("/payments/pix", checkoutH.CreatePixPayment)
		r.Post("/payments/card", checkoutH.CreateCardPayment)
		r.Post("/delivery/quote", checkoutH.QuoteDelivery)
		r.Post("/operator/login", operatorH.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTMiddleware(jwtSecret, operatorSvc))
			r.Get("/orders", operatorH.ListOrders)
		})
	})

	return r
}
