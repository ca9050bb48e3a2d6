package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"80"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"CARRIER_ENVIRONMENT" default:"sandbox"`

	// Credential store
	CredentialMasterKey string `envconfig:"CREDENTIAL_MASTER_KEY"`

	// Quotation engine
	QuoteTimeout      time.Duration `envconfig:"QUOTE_TIMEOUT" default:"5s"`
	RecommendCost     float64       `envconfig:"RECOMMEND_WEIGHT_COST" default:"0.5"`
	RecommendTransit  float64       `envconfig:"RECOMMEND_WEIGHT_TRANSIT" default:"0.3"`
	RecommendReliable float64       `envconfig:"RECOMMEND_WEIGHT_RELIABILITY" default:"0.2"`

	// Circuit breaker
	BreakerThreshold   int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	BreakerCooldown    time.Duration `envconfig:"BREAKER_COOLDOWN" default:"60s"`
	BreakerMaxCooldown time.Duration `envconfig:"BREAKER_MAX_COOLDOWN" default:"10m"`

	// DHL Express
	DHLAPIKey        string `envconfig:"DHL_API_KEY"`
	DHLAPISecret     string `envconfig:"DHL_API_SECRET"`
	DHLAccountNumber string `envconfig:"DHL_ACCOUNT_NUMBER"`
	DHLWebhookSecret string `envconfig:"DHL_WEBHOOK_SECRET"`
	DHLBaseURL       string `envconfig:"DHL_BASE_URL" default:"https://express.api.dhl.com"`
	DHLEnabled       bool   `envconfig:"DHL_ENABLED" default:"true"`
	DHLUseMock       bool   `envconfig:"DHL_USE_MOCK" default:"false"`

	// FedEx
	FedExClientID      string `envconfig:"FEDEX_CLIENT_ID"`
	FedExClientSecret  string `envconfig:"FEDEX_CLIENT_SECRET"`
	FedExAccountNumber string `envconfig:"FEDEX_ACCOUNT_NUMBER"`
	FedExWebhookSecret string `envconfig:"FEDEX_WEBHOOK_SECRET"`
	FedExBaseURL       string `envconfig:"FEDEX_BASE_URL" default:"https://apis.fedex.com"`
	FedExEnabled       bool   `envconfig:"FEDEX_ENABLED" default:"true"`
	FedExUseMock       bool   `envconfig:"FEDEX_USE_MOCK" default:"false"`

	// UPS
	UPSClientID      string `envconfig:"UPS_CLIENT_ID"`
	UPSClientSecret  string `envconfig:"UPS_CLIENT_SECRET"`
	UPSWebhookSecret string `envconfig:"UPS_WEBHOOK_SECRET"`
	UPSBaseURL       string `envconfig:"UPS_BASE_URL" default:"https://onlinetools.ups.com"`
	UPSEnabled       bool   `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock       bool   `envconfig:"UPS_USE_MOCK" default:"false"`

	// Servientrega
	ServientregaUsername      string `envconfig:"SERVIENTREGA_USERNAME"`
	ServientregaPassword      string `envconfig:"SERVIENTREGA_PASSWORD"`
	ServientregaWebhookSecret string `envconfig:"SERVIENTREGA_WEBHOOK_SECRET"`
	ServientregaWSDLURL       string `envconfig:"SERVIENTREGA_WSDL_URL" default:"https://web.servientrega.com"`
	ServientregaEnabled       bool   `envconfig:"SERVIENTREGA_ENABLED" default:"true"`
	ServientregaUseMock       bool   `envconfig:"SERVIENTREGA_USE_MOCK" default:"false"`

	// Interrapidisimo
	InterAPIKey        string `envconfig:"INTERRAPIDISIMO_API_KEY"`
	InterWebhookSecret string `envconfig:"INTERRAPIDISIMO_WEBHOOK_SECRET"`
	InterBaseURL       string `envconfig:"INTERRAPIDISIMO_BASE_URL" default:"https://api.interrapidisimo.co"`
	InterEnabled       bool   `envconfig:"INTERRAPIDISIMO_ENABLED" default:"true"`
	InterUseMock       bool   `envconfig:"INTERRAPIDISIMO_USE_MOCK" default:"false"`

	// Pickit
	PickitAPIKey        string `envconfig:"PICKIT_API_KEY"`
	PickitToken         string `envconfig:"PICKIT_TOKEN"`
	PickitWebhookSecret string `envconfig:"PICKIT_WEBHOOK_SECRET"`
	PickitBaseURL       string `envconfig:"PICKIT_BASE_URL" default:"https://api.pickit.net"`
	PickitEnabled       bool   `envconfig:"PICKIT_ENABLED" default:"true"`
	PickitUseMock       bool   `envconfig:"PICKIT_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"quenty-carriers"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("carrier.environment", c.Environment),
		attribute.Bool("dhl.enabled", c.DHLEnabled),
		attribute.Bool("fedex.enabled", c.FedExEnabled),
		attribute.Bool("ups.enabled", c.UPSEnabled),
		attribute.Bool("servientrega.enabled", c.ServientregaEnabled),
		attribute.Bool("interrapidisimo.enabled", c.InterEnabled),
		attribute.Bool("pickit.enabled", c.PickitEnabled),
	}
}
