package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Address            string        `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseConnection string        `env:"DATABASE_URI"`
	FrontendURL        string        `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	MPAPIAddress       string        `env:"MP_API_ADDRESS" envDefault:"https://api.mercadopago.com"`
	MPAccessToken      string        `env:"MP_ACCESS_TOKEN"`
	MPWebhookSecret    string        `env:"MP_WEBHOOK_SECRET"`
	GatewayTimeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	MailgunAPIAddress  string        `env:"MAILGUN_API_ADDRESS" envDefault:"https://api.mailgun.net"`
	MailgunAPIKey      string        `env:"MAILGUN_API_KEY"`
	MailgunDomain      string        `env:"MAILGUN_DOMAIN"`
	MailgunSender      string        `env:"MAILGUN_SENDER_EMAIL"`
	OrderRecipient     string        `env:"ORDER_RECIPIENT_EMAIL" envDefault:"pedidos@pastelariapastelecana.com.br"`
	NotifyMaxAttempts  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	NotifyInterval     time.Duration `env:"NOTIFY_RETRY_INTERVAL" envDefault:"30s"`
	DeliveryBaseFee    string        `env:"DELIVERY_BASE_FEE" envDefault:"2.00"`
	DeliveryFeePerKm   string        `env:"DELIVERY_FEE_PER_KM" envDefault:"2.00"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"dontexposethis"`
	JWTTTL             time.Duration `env:"JWT_TTL" envDefault:"24h"`
	OperatorLogin      string        `env:"OPERATOR_LOGIN" envDefault:"operador"`
	OperatorPassHash   string        `env:"OPERATOR_PASSWORD_HASH"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.MPAccessToken == "" {
		return nil, fmt.Errorf("ENV MP_ACCESS_TOKEN must be set")
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string")
	gatewayAddress := flag.String("g", cfg.MPAPIAddress, "Mercado Pago API address")
	gatewayTimeout := flag.Duration("gt", cfg.GatewayTimeout, "Per-call timeout for gateway requests")
	storeTimeout := flag.Duration("st", cfg.StoreTimeout, "Per-call timeout for store operations")
	recipient := flag.String("r", cfg.OrderRecipient, "Recipient address for order notifications")
	jwtTTL := flag.Duration("t", cfg.JWTTTL, "TTL for JWT token(e.g. 24h; 30m )")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.MPAPIAddress = *gatewayAddress
	cfg.GatewayTimeout = *gatewayTimeout
	cfg.StoreTimeout = *storeTimeout
	cfg.OrderRecipient = *recipient
	cfg.JWTTTL = *jwtTTL

	return cfg, nil
}
