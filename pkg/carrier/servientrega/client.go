// Package servientrega provides the Servientrega carrier adapter for
// domestic Colombian shipments.
package servientrega

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
const Code = "servientrega"

// Profile returns Servientrega's immutable carrier profile.
func Profile() *carrier.Profile {
	return &carrier.Profile{
		Code: Code,
		Name: "Servientrega",
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapShipment,
			carrier.CapTracking,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 5, Burst: 10},
		Coverage:         []string{"CO"},
		Transit:          carrier.TransitModel{MinDays: 1, MaxDays: 6},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "X-Servientrega-Signature",
			Digest:          carrier.DigestHex,
		},
		CredentialTypes: []string{
			credentials.TypeUsername,
			credentials.TypePassword,
			credentials.TypeWebhookSecret,
		},
	}
}

// Config holds Servientrega adapter configuration.
type Config struct {
	Username string
	Password string
	WSDLURL  string
	UseMock  bool
}

// Client is the Servientrega adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a Servientrega adapter. With cfg.UseMock it uses the mock API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			WSDLURL:  cfg.WSDLURL,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a Servientrega adapter with an injected API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return Code
}

// Quote returns Servientrega's best offer for the request.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "servientrega.quote")
		defer span.End()
	}

	apiReq := &RatesRequest{
		OriginCity:            req.Origin.City,
		OriginPostalCode:      req.Origin.PostalCode,
		DestinationCity:       req.Destination.City,
		DestinationPostalCode: req.Destination.PostalCode,
		DestinationCountry:    req.Destination.CountryCode,
		TotalWeightKG:         req.TotalWeight(),
		TotalPieces:           len(req.Packages),
	}

	resp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Estimates) == 0 {
		return nil, carrier.NewError(Code, carrier.KindNoService, "no services offered for route")
	}

	best := pickEstimate(resp.Estimates, req.ServiceLevel)
	return &carrier.Quote{
		CarrierCode:  Code,
		ServiceLevel: serviceLevel(best.ServiceID),
		ServiceName:  best.ServiceName,
		Cost: carrier.CostBreakdown{
			Base:          carrier.Money{Amount: best.BasePrice, Currency: best.Currency},
			FuelSurcharge: carrier.Money{Amount: best.Surcharge, Currency: best.Currency},
			Taxes:         carrier.Money{Amount: best.Tax, Currency: best.Currency},
			Total:         carrier.Money{Amount: best.TotalPrice, Currency: best.Currency},
		},
		TransitDays: best.TransitDays,
		Confidence:  confidence(best),
	}, nil
}

// CreateShipment books a shipment and returns the generated guide.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	apiReq := &GuideRequest{
		Sender:        toWireAddress(req.Origin),
		Receiver:      toWireAddress(req.Destination),
		ServiceID:     serviceID(req.Quote.ServiceLevel),
		TotalWeightKG: totalWeight(req.Packages),
		TotalPieces:   len(req.Packages),
		Reference:     req.Reference,
	}

	resp, err := c.apiClient.CreateGuide(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	return &carrier.Shipment{
		CarrierCode:    Code,
		TrackingID:     resp.GuideNumber,
		LabelReference: resp.LabelURL,
		ServiceLevel:   serviceLevel(resp.ServiceID),
		TotalCharged:   carrier.Money{Amount: resp.TotalPrice, Currency: resp.Currency},
	}, nil
}

// Track returns the movement history for a guide.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	resp, err := c.apiClient.GetTracking(ctx, trackingID)
	if err != nil {
		return nil, c.mapError(err)
	}

	events := make([]carrier.TrackingEvent, 0, len(resp.Movements))
	for _, m := range resp.Movements {
		ts, _ := time.Parse("2006-01-02 15:04:05", m.Date+" "+m.Time)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      m.Status,
			Description: m.Description,
			Location:    m.City,
		})
	}
	return events, nil
}

// Cancel voids a guide that has not entered the network yet.
func (c *Client) Cancel(ctx context.Context, trackingID string) error {
	resp, err := c.apiClient.CancelGuide(ctx, trackingID)
	if err != nil {
		return c.mapError(err)
	}
	if !resp.GuideCancelled {
		return carrier.NewError(Code, carrier.KindNotCancellable, resp.Reason)
	}
	return nil
}

// ============================================================================
// Conversion and mapping helpers
// ============================================================================

func toWireAddress(a carrier.Address) WireAddress {
	street := a.Line1
	if a.Line2 != "" {
		street += ", " + a.Line2
	}
	return WireAddress{
		Name:       a.Name,
		Company:    a.Company,
		Street:     street,
		City:       a.City,
		Province:   a.ProvinceCode,
		PostalCode: a.PostalCode,
		Country:    a.CountryCode,
		Phone:      a.Phone,
	}
}

func totalWeight(pkgs []carrier.Package) float64 {
	var total float64
	for _, p := range pkgs {
		total += p.Weight
	}
	return total
}

func serviceID(level carrier.ServiceLevel) string {
	switch level {
	case carrier.ServicePriority, carrier.ServiceExpress:
		return "PREMIER"
	case carrier.ServiceStandard, carrier.ServiceEconomy:
		return "INDUSTRIAL"
	default:
		return "INDUSTRIAL"
	}
}

func serviceLevel(id string) carrier.ServiceLevel {
	switch id {
	case "PREMIER":
		return carrier.ServiceExpress
	case "INDUSTRIAL":
		return carrier.ServiceStandard
	default:
		return carrier.ServiceStandard
	}
}

func confidence(e Estimate) float64 {
	if e.ServiceID == "PREMIER" {
		return 0.86
	}
	return 0.74
}

func pickEstimate(estimates []Estimate, level carrier.ServiceLevel) Estimate {
	if level != "" {
		want := serviceID(level)
		for _, e := range estimates {
			if e.ServiceID == want {
				return e
			}
		}
	}
	best := estimates[0]
	for _, e := range estimates[1:] {
		if e.TotalPrice < best.TotalPrice {
			best = e
		}
	}
	return best
}

func (c *Client) mapError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "HTTP_401", "HTTP_403", "ERR_AUTENTICACION":
			return carrier.NewError(Code, carrier.KindAuthentication, apiErr.Description).WithCause(err)
		case "ERR_DIRECCION":
			return carrier.NewError(Code, carrier.KindInvalidAddress, apiErr.Description).WithCause(err)
		case "ERR_COBERTURA":
			// Destination outside the Servientrega network
			return carrier.NewError(Code, carrier.KindNoService, apiErr.Description).WithCause(err)
		default:
			return carrier.NewError(Code, carrier.KindUpstream, apiErr.Description).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return carrier.NewError(Code, carrier.KindTimeout, "Servientrega did not answer in time").WithCause(err)
	}
	return carrier.NewError(Code, carrier.KindUpstream, "Servientrega call failed").WithCause(err)
}

var (
	_ carrier.Adapter         = (*Client)(nil)
	_ carrier.RateQuoter      = (*Client)(nil)
	_ carrier.ShipmentCreator = (*Client)(nil)
	_ carrier.Tracker         = (*Client)(nil)
	_ carrier.Canceller       = (*Client)(nil)
)
