package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/config"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/telemetry"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/webhook"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/dhl"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/fedex"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/interrapidisimo"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/pickit"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ratelimit"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/servientrega"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ups"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

// initCredentialStore builds the encrypted store with the schema declared by
// the carrier profiles and seeds it from the process environment.
func initCredentialStore(cfg *config.Config, logger *otelzap.Logger) (*credentials.Store, error) {
	schema := make(map[string][]string)
	for _, p := range []*carrier.Profile{
		dhl.Profile(), fedex.Profile(), ups.Profile(),
		servientrega.Profile(), interrapidisimo.Profile(), pickit.Profile(),
	} {
		schema[p.Code] = p.CredentialTypes
	}

	store, err := credentials.NewStore(cfg.CredentialMasterKey, schema, logger.Logger)
	if err != nil {
		return nil, err
	}

	env := carrier.Environment(cfg.Environment)
	seed := []struct {
		carrier string
		typ     string
		value   string
	}{
		{dhl.Code, credentials.TypeAPIKey, cfg.DHLAPIKey},
		{dhl.Code, credentials.TypeAPISecret, cfg.DHLAPISecret},
		{dhl.Code, credentials.TypeAccountNumber, cfg.DHLAccountNumber},
		{dhl.Code, credentials.TypeWebhookSecret, cfg.DHLWebhookSecret},
		{fedex.Code, credentials.TypeOAuthClientID, cfg.FedExClientID},
		{fedex.Code, credentials.TypeOAuthClientSecret, cfg.FedExClientSecret},
		{fedex.Code, credentials.TypeAccountNumber, cfg.FedExAccountNumber},
		{fedex.Code, credentials.TypeWebhookSecret, cfg.FedExWebhookSecret},
		{ups.Code, credentials.TypeOAuthClientID, cfg.UPSClientID},
		{ups.Code, credentials.TypeOAuthClientSecret, cfg.UPSClientSecret},
		{ups.Code, credentials.TypeWebhookSecret, cfg.UPSWebhookSecret},
		{servientrega.Code, credentials.TypeUsername, cfg.ServientregaUsername},
		{servientrega.Code, credentials.TypePassword, cfg.ServientregaPassword},
		{servientrega.Code, credentials.TypeWebhookSecret, cfg.ServientregaWebhookSecret},
		{interrapidisimo.Code, credentials.TypeAPIKey, cfg.InterAPIKey},
		{interrapidisimo.Code, credentials.TypeWebhookSecret, cfg.InterWebhookSecret},
		{pickit.Code, credentials.TypeAPIKey, cfg.PickitAPIKey},
		{pickit.Code, credentials.TypeAPISecret, cfg.PickitToken},
		{pickit.Code, credentials.TypeWebhookSecret, cfg.PickitWebhookSecret},
	}
	for _, s := range seed {
		if s.value == "" {
			continue
		}
		if _, err := store.Store(s.carrier, s.typ, env, s.value); err != nil {
			logger.Warn("seeding credential failed",
				zap.String("carrier", s.carrier),
				zap.String("type", s.typ),
				zap.Error(err),
			)
		}
	}
	return store, nil
}

// initCarrierRegistry registers every enabled carrier with a builder that
// resolves its credentials from the store at first use.
func initCarrierRegistry(cfg *config.Config, store *credentials.Store, logger *otelzap.Logger, tracer trace.Tracer) *carrier.Registry {
	limiter := ratelimit.New()
	brk := breaker.New(breaker.Config{
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
		MaxCooldown:      cfg.BreakerMaxCooldown,
	})
	registry := carrier.NewRegistry(limiter, brk, logger)

	if cfg.DHLEnabled {
		registry.Register(dhl.Profile(), func(env carrier.Environment) (carrier.Adapter, error) {
			if cfg.DHLUseMock {
				return dhl.New(dhl.Config{UseMock: true}, logger, tracer), nil
			}
			apiKey, err := store.Resolve(dhl.Code, credentials.TypeAPIKey, env)
			if err != nil {
				return nil, err
			}
			apiSecret, err := store.Resolve(dhl.Code, credentials.TypeAPISecret, env)
			if err != nil {
				return nil, err
			}
			account, _ := store.Resolve(dhl.Code, credentials.TypeAccountNumber, env)
			return dhl.New(dhl.Config{
				APIKey:        apiKey,
				APISecret:     apiSecret,
				AccountNumber: account,
				BaseURL:       cfg.DHLBaseURL,
			}, logger, tracer), nil
		})
	}

	if cfg.FedExEnabled {
		registry.Register(fedex.Profile(), func(env carrier.Environment) (carrier.Adapter, error) {
			if cfg.FedExUseMock {
				return fedex.New(fedex.Config{UseMock: true}, logger, tracer), nil
			}
			clientID, err := store.Resolve(fedex.Code, credentials.TypeOAuthClientID, env)
			if err != nil {
				return nil, err
			}
			clientSecret, err := store.Resolve(fedex.Code, credentials.TypeOAuthClientSecret, env)
			if err != nil {
				return nil, err
			}
			account, _ := store.Resolve(fedex.Code, credentials.TypeAccountNumber, env)
			return fedex.New(fedex.Config{
				ClientID:      clientID,
				ClientSecret:  clientSecret,
				AccountNumber: account,
				BaseURL:       cfg.FedExBaseURL,
			}, logger, tracer), nil
		})
	}

	if cfg.UPSEnabled {
		registry.Register(ups.Profile(), func(env carrier.Environment) (carrier.Adapter, error) {
			if cfg.UPSUseMock {
				return ups.New(ups.Config{UseMock: true}, logger, tracer), nil
			}
			clientID, err := store.Resolve(ups.Code, credentials.TypeOAuthClientID, env)
			if err != nil {
				return nil, err
			}
			clientSecret, err := store.Resolve(ups.Code, credentials.TypeOAuthClientSecret, env)
			if err != nil {
				return nil, err
			}
			return ups.New(ups.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				BaseURL:      cfg.UPSBaseURL,
			}, logger, tracer), nil
		})
	}

	if cfg.ServientregaEnabled {
		registry.Register(servientrega.Profile(), func(env carrier.Environment) (carrier.Adapter, error) {
			if cfg.ServientregaUseMock {
				return servientrega.New(servientrega.Config{UseMock: true}, logger, tracer), nil
			}
			username, err := store.Resolve(servientrega.Code, credentials.TypeUsername, env)
			if err != nil {
				return nil, err
			}
			password, err := store.Resolve(servientrega.Code, credentials.TypePassword, env)
			if err != nil {
				return nil, err
			}
			return servientrega.New(servientrega.Config{
				Username: username,
				Password: password,
				WSDLURL:  cfg.ServientregaWSDLURL,
			}, logger, tracer), nil
		})
	}

	if cfg.InterEnabled {
		registry.Register(interrapidisimo.Profile(), func(env carrier.Environment) (carrier.Adapter, error) {
			if cfg.InterUseMock {
				return interrapidisimo.New(interrapidisimo.Config{UseMock: true}, logger, tracer), nil
			}
			apiKey, err := store.Resolve(interrapidisimo.Code, credentials.TypeAPIKey, env)
			if err != nil {
				return nil, err
			}
			return interrapidisimo.New(interrapidisimo.Config{
				APIKey:  apiKey,
				BaseURL: cfg.InterBaseURL,
			}, logger, tracer), nil
		})
	}

	if cfg.PickitEnabled {
		registry.Register(pickit.Profile(), func(env carrier.Environment) (carrier.Adapter, error) {
			if cfg.PickitUseMock {
				return pickit.New(pickit.Config{UseMock: true}, logger, tracer), nil
			}
			apiKey, err := store.Resolve(pickit.Code, credentials.TypeAPIKey, env)
			if err != nil {
				return nil, err
			}
			token, err := store.Resolve(pickit.Code, credentials.TypeAPISecret, env)
			if err != nil {
				return nil, err
			}
			return pickit.New(pickit.Config{
				APIKey:  apiKey,
				Token:   token,
				BaseURL: cfg.PickitBaseURL,
			}, logger, tracer), nil
		})
	}

	return registry
}

func initWebhookPipeline(registry *carrier.Registry, store *credentials.Store, logger *otelzap.Logger) *webhook.Pipeline {
	pipeline := webhook.NewPipeline(registry, store, &loggingSink{logger: logger}, logger)
	pipeline.RegisterDecoder(dhl.Code, dhl.DecodeWebhook)
	return pipeline
}

// loggingSink records verified tracking updates in the service log. The
// order service consumes them from there until it grows a direct consumer.
type loggingSink struct {
	logger *otelzap.Logger
}

func (s *loggingSink) HandleTrackingUpdate(ctx context.Context, update *carrier.TrackingUpdate) error {
	s.logger.Ctx(ctx).Info("tracking update",
		zap.String("carrier", update.CarrierCode),
		zap.String("tracking_id", update.TrackingID),
		zap.String("status", update.Status),
		zap.Time("occurred_at", update.OccurredAt),
	)
	return nil
}
