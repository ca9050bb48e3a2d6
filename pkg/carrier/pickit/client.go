// Package pickit provides the Pickit carrier adapter, covering both home
// delivery and pickup-point delivery options.
package pickit

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
const Code = "pickit"

// Profile returns Pickit's immutable carrier profile.
func Profile() *carrier.Profile {
	return &carrier.Profile{
		Code: Code,
		Name: "Pickit",
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapShipment,
			carrier.CapTracking,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 5, Burst: 10},
		Coverage:         []string{"AR", "CL", "CO", "MX", "UY"},
		Transit:          carrier.TransitModel{MinDays: 1, MaxDays: 6},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "X-Pickit-Signature",
			Digest:          carrier.DigestHex,
		},
		CredentialTypes: []string{
			credentials.TypeAPIKey,
			credentials.TypeAPISecret,
			credentials.TypeWebhookSecret,
		},
	}
}

// Config holds Pickit adapter configuration.
type Config struct {
	APIKey  string
	Token   string
	BaseURL string
	UseMock bool
}

// Client is the Pickit adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a Pickit adapter. With cfg.UseMock it uses the mock API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Token:   cfg.Token,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a Pickit adapter with an injected API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return Code
}

// Quote returns Pickit's best offer for the request.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "pickit.quote")
		defer span.End()
	}

	apiReq := &BudgetRequest{
		Origin:      toWirePoint(req.Origin),
		Destination: toWirePoint(req.Destination),
		Parcels:     toWireItems(req.Packages),
		ServiceType: serviceType(req.ServiceLevel),
	}

	resp, err := c.apiClient.Budget(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Options) == 0 {
		return nil, carrier.NewError(Code, carrier.KindNoService, "no services offered for route")
	}

	best := pickOption(resp.Options, req.ServiceLevel)
	return &carrier.Quote{
		CarrierCode:  Code,
		ServiceLevel: serviceLevel(best.ServiceType),
		ServiceName:  best.ServiceName,
		Cost: carrier.CostBreakdown{
			Base:  carrier.Money{Amount: best.Price, Currency: best.Currency},
			Taxes: carrier.Money{Amount: best.Tax, Currency: best.Currency},
			Total: carrier.Money{Amount: best.TotalPrice, Currency: best.Currency},
		},
		TransitDays: best.EstimatedDays,
		Confidence:  confidence(best),
		UpstreamRef: resp.BudgetID,
	}, nil
}

// CreateShipment books a transaction with Pickit.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	apiReq := &TransactionRequest{
		BudgetID:    req.Quote.UpstreamRef,
		Origin:      toWirePoint(req.Origin),
		Destination: toWirePoint(req.Destination),
		Parcels:     toWireItems(req.Packages),
		ServiceType: serviceType(req.Quote.ServiceLevel),
		Reference:   req.Reference,
	}

	resp, err := c.apiClient.CreateTransaction(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	return &carrier.Shipment{
		CarrierCode:    Code,
		TrackingID:     resp.TrackingCode,
		LabelReference: resp.LabelURL,
		ServiceLevel:   serviceLevel(resp.ServiceType),
		TotalCharged:   carrier.Money{Amount: resp.TotalPrice, Currency: resp.Currency},
	}, nil
}

// Track returns the tracking history for a Pickit transaction.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	resp, err := c.apiClient.GetTracking(ctx, trackingID)
	if err != nil {
		return nil, c.mapError(err)
	}

	events := make([]carrier.TrackingEvent, 0, len(resp.History))
	for _, e := range resp.History {
		ts, _ := time.Parse(time.RFC3339, e.Date)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
		})
	}
	return events, nil
}

// Cancel cancels a Pickit transaction that has not been collected yet.
func (c *Client) Cancel(ctx context.Context, trackingID string) error {
	resp, err := c.apiClient.CancelTransaction(ctx, trackingID)
	if err != nil {
		return c.mapError(err)
	}
	if !resp.Cancelled {
		return carrier.NewError(Code, carrier.KindNotCancellable, resp.Reason)
	}
	return nil
}

// ============================================================================
// Conversion and mapping helpers
// ============================================================================

func toWirePoint(a carrier.Address) WirePoint {
	street := a.Line1
	if a.Line2 != "" {
		street += ", " + a.Line2
	}
	return WirePoint{
		Street:     street,
		City:       a.City,
		Province:   a.ProvinceCode,
		PostalCode: a.PostalCode,
		Country:    a.CountryCode,
	}
}

func toWireItems(pkgs []carrier.Package) []WireItem {
	out := make([]WireItem, len(pkgs))
	for i, p := range pkgs {
		out[i] = WireItem{WeightKG: p.Weight, LengthCM: p.Length, WidthCM: p.Width, HeightCM: p.Height}
	}
	return out
}

func serviceType(level carrier.ServiceLevel) string {
	switch level {
	case carrier.ServicePriority, carrier.ServiceExpress:
		return "POINT_EXPRESS"
	case carrier.ServiceStandard, carrier.ServiceEconomy:
		return "HOME_STANDARD"
	default:
		return ""
	}
}

func serviceLevel(serviceType string) carrier.ServiceLevel {
	switch serviceType {
	case "POINT_EXPRESS":
		return carrier.ServiceExpress
	case "HOME_STANDARD":
		return carrier.ServiceStandard
	default:
		return carrier.ServiceStandard
	}
}

func confidence(o WireOption) float64 {
	// Point deliveries skip the last-mile leg and miss less often
	if o.PointDelivery {
		return 0.88
	}
	return 0.76
}

func pickOption(options []WireOption, level carrier.ServiceLevel) WireOption {
	if level != "" {
		want := serviceType(level)
		for _, o := range options {
			if o.ServiceType == want {
				return o
			}
		}
	}
	best := options[0]
	for _, o := range options[1:] {
		if o.TotalPrice < best.TotalPrice {
			best = o
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
		case apiErr.Code == "INVALID_ADDRESS":
			return carrier.NewError(Code, carrier.KindInvalidAddress, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "NO_COVERAGE":
			return carrier.NewError(Code, carrier.KindNoService, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		default:
			return carrier.NewError(Code, carrier.KindUpstream, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return carrier.NewError(Code, carrier.KindTimeout, "Pickit did not answer in time").WithCause(err)
	}
	return carrier.NewError(Code, carrier.KindUpstream, "Pickit call failed").WithCause(err)
}

var (
	_ carrier.Adapter         = (*Client)(nil)
	_ carrier.RateQuoter      = (*Client)(nil)
	_ carrier.ShipmentCreator = (*Client)(nil)
	_ carrier.Tracker         = (*Client)(nil)
	_ carrier.Canceller       = (*Client)(nil)
)
