// Package ups provides the UPS carrier adapter.
package ups

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
const Code = "ups"

// Profile returns UPS's immutable carrier profile.
func Profile() *carrier.Profile {
	return &carrier.Profile{
		Code: Code,
		Name: "UPS",
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapShipment,
			carrier.CapTracking,
			carrier.CapAddressValidate,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 8, Burst: 16},
		Transit:          carrier.TransitModel{MinDays: 1, MaxDays: 8},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "X-UPS-Signature",
			Digest:          carrier.DigestHex,
		},
		CredentialTypes: []string{
			credentials.TypeOAuthClientID,
			credentials.TypeOAuthClientSecret,
			credentials.TypeWebhookSecret,
		},
	}
}

// Config holds UPS adapter configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	UseMock      bool
}

// Client is the UPS adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a UPS adapter. With cfg.UseMock it uses the mock API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:      cfg.BaseURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a UPS adapter with an injected API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return Code
}

// Quote returns UPS's best offer for the request.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "ups.quote")
		defer span.End()
	}

	apiReq := &RateRequest{
		ShipFrom:    toWireAddress(req.Origin),
		ShipTo:      toWireAddress(req.Destination),
		Packages:    toWirePackages(req.Packages),
		ServiceCode: serviceCode(req.ServiceLevel),
	}

	resp, err := c.apiClient.Rate(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.RatedShipments) == 0 {
		return nil, carrier.NewError(Code, carrier.KindNoService, "no services offered for route")
	}

	best := pickShipment(resp.RatedShipments, req.ServiceLevel)
	return &carrier.Quote{
		CarrierCode:  Code,
		ServiceLevel: serviceLevel(best.ServiceCode),
		ServiceName:  best.ServiceDescription,
		Cost: carrier.CostBreakdown{
			Base:          carrier.Money{Amount: best.TransportCharge, Currency: best.Currency},
			FuelSurcharge: carrier.Money{Amount: best.FuelSurcharge, Currency: best.Currency},
			Taxes:         carrier.Money{Amount: best.Taxes, Currency: best.Currency},
			Total:         carrier.Money{Amount: best.TotalCharge, Currency: best.Currency},
		},
		TransitDays: best.BusinessDays,
		Confidence:  confidence(best),
		UpstreamRef: best.RateID,
	}, nil
}

// CreateShipment books a shipment with UPS.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	apiReq := &ShipRequest{
		ShipFrom:    toWireAddress(req.Origin),
		ShipTo:      toWireAddress(req.Destination),
		Packages:    toWirePackages(req.Packages),
		ServiceCode: serviceCode(req.Quote.ServiceLevel),
		Reference:   req.Reference,
	}

	resp, err := c.apiClient.Ship(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	return &carrier.Shipment{
		CarrierCode:    Code,
		TrackingID:     resp.TrackingNumber,
		LabelReference: resp.LabelURL,
		ServiceLevel:   serviceLevel(resp.ServiceCode),
		TotalCharged:   carrier.Money{Amount: resp.TotalCharge, Currency: resp.Currency},
	}, nil
}

// Track returns the tracking history for a UPS shipment.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	resp, err := c.apiClient.Track(ctx, trackingID)
	if err != nil {
		return nil, c.mapError(err)
	}

	events := make([]carrier.TrackingEvent, 0, len(resp.Activity))
	for _, a := range resp.Activity {
		ts, _ := time.Parse(time.RFC3339, a.Timestamp)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      a.StatusCode,
			Description: a.Description,
			Location:    a.City,
		})
	}
	return events, nil
}

// ValidateAddress normalizes an address against UPS's directory.
func (c *Client) ValidateAddress(ctx context.Context, addr carrier.Address) (*carrier.Address, error) {
	resp, err := c.apiClient.ValidateAddress(ctx, &XAVRequest{Address: toWireAddress(addr)})
	if err != nil {
		return nil, c.mapError(err)
	}
	if !resp.Valid {
		return nil, carrier.NewError(Code, carrier.KindInvalidAddress, resp.Reason)
	}
	normalized := fromWireAddress(resp.Candidate)
	normalized.Name = addr.Name
	normalized.Phone = addr.Phone
	normalized.Email = addr.Email
	return &normalized, nil
}

// ============================================================================
// Conversion and mapping helpers
// ============================================================================

func toWireAddress(a carrier.Address) WireAddress {
	lines := []string{a.Line1}
	if a.Line2 != "" {
		lines = append(lines, a.Line2)
	}
	return WireAddress{
		AddressLine:       lines,
		City:              a.City,
		StateProvinceCode: a.ProvinceCode,
		PostalCode:        a.PostalCode,
		CountryCode:       a.CountryCode,
	}
}

func fromWireAddress(w WireAddress) carrier.Address {
	addr := carrier.Address{
		City:         w.City,
		ProvinceCode: w.StateProvinceCode,
		PostalCode:   w.PostalCode,
		CountryCode:  w.CountryCode,
	}
	if len(w.AddressLine) > 0 {
		addr.Line1 = w.AddressLine[0]
	}
	if len(w.AddressLine) > 1 {
		addr.Line2 = w.AddressLine[1]
	}
	return addr
}

func toWirePackages(pkgs []carrier.Package) []WirePackage {
	out := make([]WirePackage, len(pkgs))
	for i, p := range pkgs {
		out[i] = WirePackage{WeightKG: p.Weight, LengthCM: p.Length, WidthCM: p.Width, HeightCM: p.Height}
	}
	return out
}

func serviceCode(level carrier.ServiceLevel) string {
	switch level {
	case carrier.ServicePriority, carrier.ServiceExpress:
		return "07"
	case carrier.ServiceStandard, carrier.ServiceEconomy:
		return "08"
	default:
		return ""
	}
}

func serviceLevel(code string) carrier.ServiceLevel {
	switch code {
	case "07":
		return carrier.ServiceExpress
	case "08":
		return carrier.ServiceStandard
	default:
		return carrier.ServiceStandard
	}
}

func confidence(s RatedShipment) float64 {
	if s.GuaranteedDelivery {
		return 0.91
	}
	return 0.80
}

func pickShipment(shipments []RatedShipment, level carrier.ServiceLevel) RatedShipment {
	if level != "" {
		want := serviceCode(level)
		for _, s := range shipments {
			if s.ServiceCode == want {
				return s
			}
		}
	}
	best := shipments[0]
	for _, s := range shipments[1:] {
		if s.TotalCharge < best.TotalCharge {
			best = s
		}
	}
	return best
}

func (c *Client) mapError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401 || apiErr.Status == 403 || apiErr.Code == "AUTH_FAILED":
			return carrier.NewError(Code, carrier.KindAuthentication, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "120202" || apiErr.Code == "INVALID_ADDRESS":
			// 120202: missing or invalid ship-to address
			return carrier.NewError(Code, carrier.KindInvalidAddress, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "111035" || apiErr.Code == "NO_SERVICE":
			// 111035: service unavailable for the requested lane
			return carrier.NewError(Code, carrier.KindNoService, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		default:
			return carrier.NewError(Code, carrier.KindUpstream, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return carrier.NewError(Code, carrier.KindTimeout, "UPS did not answer in time").WithCause(err)
	}
	return carrier.NewError(Code, carrier.KindUpstream, "UPS call failed").WithCause(err)
}

var (
	_ carrier.Adapter          = (*Client)(nil)
	_ carrier.RateQuoter       = (*Client)(nil)
	_ carrier.ShipmentCreator  = (*Client)(nil)
	_ carrier.Tracker          = (*Client)(nil)
	_ carrier.AddressValidator = (*Client)(nil)
)
