// Package interrapidisimo provides the Interrapidisimo carrier adapter.
// The carrier only exposes quoting and tracking through its public API,
// so shipment booking is not available here.
package interrapidisimo

import (
	"context"
	"errors"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

// Code is the registry identifier for this carrier.
const Code = "interrapidisimo"

// Profile returns Interrapidisimo's immutable carrier profile.
func Profile() *carrier.Profile {
	return &carrier.Profile{
		Code: Code,
		Name: "Interrapidisimo",
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapTracking,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 3, Burst: 6},
		Coverage:         []string{"CO"},
		Transit:          carrier.TransitModel{MinDays: 1, MaxDays: 5},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "X-Inter-Signature",
			Digest:          carrier.DigestHex,
		},
		CredentialTypes: []string{
			credentials.TypeAPIKey,
			credentials.TypeWebhookSecret,
		},
	}
}

// Config holds Interrapidisimo adapter configuration.
type Config struct {
	APIKey  string
	BaseURL string
	UseMock bool
}

// Client is the Interrapidisimo adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates an Interrapidisimo adapter. With cfg.UseMock it uses the mock API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates an Interrapidisimo adapter with an injected API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return Code
}

// Quote returns Interrapidisimo's best offer for the request.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "interrapidisimo.quote")
		defer span.End()
	}

	apiReq := &TariffRequest{
		OriginCity:   req.Origin.City,
		OriginPostal: req.Origin.PostalCode,
		DestCity:     req.Destination.City,
		DestPostal:   req.Destination.PostalCode,
		DestCountry:  req.Destination.CountryCode,
		WeightKG:     req.TotalWeight(),
		Pieces:       len(req.Packages),
	}

	resp, err := c.apiClient.Tariff(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Tariffs) == 0 {
		return nil, carrier.NewError(Code, carrier.KindNoService, "no services offered for route")
	}

	best := pickTariff(resp.Tariffs)
	return &carrier.Quote{
		CarrierCode:  Code,
		ServiceLevel: carrier.ServiceStandard,
		ServiceName:  best.ServiceName,
		Cost: carrier.CostBreakdown{
			Base:          carrier.Money{Amount: best.FreightValue, Currency: best.Currency},
			FuelSurcharge: carrier.Money{Amount: best.HandlingFee, Currency: best.Currency},
			Taxes:         carrier.Money{Amount: best.Tax, Currency: best.Currency},
			Total:         carrier.Money{Amount: best.TotalValue, Currency: best.Currency},
		},
		TransitDays: best.DeliveryDays,
		Confidence:  0.70,
	}, nil
}

// Track returns the state history for a guide.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	resp, err := c.apiClient.TrackShipment(ctx, trackingID)
	if err != nil {
		return nil, c.mapError(err)
	}

	events := make([]carrier.TrackingEvent, 0, len(resp.States))
	for _, s := range resp.States {
		ts, _ := time.Parse(time.RFC3339, s.Timestamp)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      s.StateCode,
			Description: s.Description,
			Location:    s.City,
		})
	}
	return events, nil
}

// ============================================================================
// Conversion and mapping helpers
// ============================================================================

func pickTariff(tariffs []Tariff) Tariff {
	best := tariffs[0]
	for _, t := range tariffs[1:] {
		if t.TotalValue < best.TotalValue {
			best = t
		}
	}
	return best
}

func (c *Client) mapError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401 || apiErr.Status == 403:
			return carrier.NewError(Code, carrier.KindAuthentication, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "SIN_COBERTURA":
			return carrier.NewError(Code, carrier.KindNoService, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "DIRECCION_INVALIDA":
			return carrier.NewError(Code, carrier.KindInvalidAddress, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		default:
			return carrier.NewError(Code, carrier.KindUpstream, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return carrier.NewError(Code, carrier.KindTimeout, "Interrapidisimo did not answer in time").WithCause(err)
	}
	return carrier.NewError(Code, carrier.KindUpstream, "Interrapidisimo call failed").WithCause(err)
}

var (
	_ carrier.Adapter    = (*Client)(nil)
	_ carrier.RateQuoter = (*Client)(nil)
	_ carrier.Tracker    = (*Client)(nil)
)
