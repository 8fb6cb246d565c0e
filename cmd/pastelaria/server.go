package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pastelecana/pastelaria/internal/checkout"
	"github.com/pastelecana/pastelaria/internal/gateway"
	"github.com/pastelecana/pastelaria/internal/logger"
	"github.com/pastelecana/pastelaria/internal/notify"
	"github.com/pastelecana/pastelaria/internal/operator"
	"github.com/pastelecana/pastelaria/internal/reconciler"
	"github.com/pastelecana/pastelaria/internal/router"
	storage "github.com/pastelecana/pastelaria/internal/storage/postgres"
	"github.com/pastelecana/pastelaria/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgresStorage(cfg.DatabaseConnection)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres storage: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	gate := &gateway.HTTPClient{
		Client:      &http.Client{Timeout: cfg.GatewayTimeout},
		APIAddress:  cfg.MPAPIAddress,
		AccessToken: cfg.MPAccessToken,
		FrontendURL: cfg.FrontendURL,
	}

	mailer := &notify.MailgunClient{
		Client:     &http.Client{Timeout: 10 * time.Second},
		APIAddress: cfg.MailgunAPIAddress,
		Domain:     cfg.MailgunDomain,
		APIKey:     cfg.MailgunAPIKey,
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.MailgunSender, cfg.OrderRecipient, cfg.NotifyMaxAttempts, cfg.NotifyInterval)
	go dispatcher.Run(ctx)

	reconcileSvc := reconciler.NewService(store, gate, store, dispatcher, cfg.StoreTimeout)
	webhookH := webhook.NewHandler(reconcileSvc)

	baseFee, err := decimal.NewFromString(cfg.DeliveryBaseFee)
	if err != nil {
		log.Fatalf("Invalid DELIVERY_BASE_FEE: %v", err)
	}
	perKm, err := decimal.NewFromString(cfg.DeliveryFeePerKm)
	if err != nil {
		log.Fatalf("Invalid DELIVERY_FEE_PER_KM: %v", err)
	}
	checkoutSvc := checkout.NewService(store, gate)
	checkoutH := checkout.NewHandler(checkoutSvc, checkout.FeeTable{Base: baseFee, PerKm: perKm})

	operatorSvc := operator.NewService(cfg.OperatorLogin, []byte(cfg.OperatorPassHash), []byte(cfg.JWTSecret), cfg.JWTTTL)
	operatorH := operator.NewHandler(operatorSvc, store)

	r := router.NewRouter(webhookH, checkoutH, operatorH, operatorSvc, []byte(cfg.JWTSecret), cfg.MPWebhookSecret)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
