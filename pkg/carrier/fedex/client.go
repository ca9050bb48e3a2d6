// Package fedex provides the FedEx carrier adapter.
package fedex

import (
	"context"
	"errors"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Code is the registry identifier for this carrier.
const Code = "fedex"

// Profile returns FedEx's immutable carrier profile.
func Profile() *carrier.Profile {
	return &carrier.Profile{
		Code: Code,
		Name: "FedEx",
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapShipment,
			carrier.CapTracking,
			carrier.CapPickup,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 8, Burst: 16},
		Transit:          carrier.TransitModel{MinDays: 1, MaxDays: 7},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "X-FedEx-Signature",
			Digest:          carrier.DigestBase64,
		},
		CredentialTypes: []string{
			credentials.TypeOAuthClientID,
			credentials.TypeOAuthClientSecret,
			credentials.TypeAccountNumber,
			credentials.TypeWebhookSecret,
		},
	}
}

// Config holds FedEx adapter configuration.
type Config struct {
	ClientID      string
	ClientSecret  string
	AccountNumber string
	BaseURL       string
	UseMock       bool
}

// Client is the FedEx adapter.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a FedEx adapter. With cfg.UseMock it uses the mock API client.
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

// NewWithAPIClient creates a FedEx adapter with an injected API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return Code
}

// Quote returns FedEx's best offer for the request.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "fedex.quote")
		defer span.End()
	}
	c.logger.Ctx(ctx).Debug("requesting FedEx rates",
		zap.String("destination", req.Destination.CountryCode),
	)

	apiReq := &RateRequest{
		AccountNumber: AccountNumber{Value: c.config.AccountNumber},
		Shipment: WireShipment{
			Shipper:      WireParty{Address: toWireAddress(req.Origin)},
			Recipient:    WireParty{Address: toWireAddress(req.Destination)},
			PackageLines: toWireLines(req.Packages),
			ServiceType:  serviceType(req.ServiceLevel),
			PickupType:   "DROPOFF_AT_FEDEX_LOCATION",
		},
	}

	resp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.RateDetails) == 0 {
		return nil, carrier.NewError(Code, carrier.KindNoService, "no services offered for route")
	}

	best := pickDetail(resp.RateDetails, req.ServiceLevel)
	return &carrier.Quote{
		CarrierCode:  Code,
		ServiceLevel: serviceLevel(best.ServiceType),
		ServiceName:  best.ServiceName,
		Cost: carrier.CostBreakdown{
			Base:          carrier.Money{Amount: best.BaseCharge, Currency: best.Currency},
			FuelSurcharge: carrier.Money{Amount: best.FuelSurcharge, Currency: best.Currency},
			Insurance:     carrier.Money{Amount: best.InsuredCharge, Currency: best.Currency},
			Taxes:         carrier.Money{Amount: best.Taxes, Currency: best.Currency},
			Total:         carrier.Money{Amount: best.NetCharge, Currency: best.Currency},
		},
		TransitDays: best.TransitDays,
		Confidence:  confidence(best),
		UpstreamRef: resp.QuoteID,
	}, nil
}

// CreateShipment books a shipment with FedEx.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	apiReq := &ShipRequest{
		AccountNumber: AccountNumber{Value: c.config.AccountNumber},
		ServiceType:   serviceType(req.Quote.ServiceLevel),
		Shipment: WireShipment{
			Shipper:      WireParty{Address: toWireAddress(req.Origin)},
			Recipient:    WireParty{Address: toWireAddress(req.Destination)},
			PackageLines: toWireLines(req.Packages),
			Reference:    req.Reference,
		},
	}

	resp, err := c.apiClient.CreateShipment(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	return &carrier.Shipment{
		CarrierCode:    Code,
		TrackingID:     resp.TrackingNumber,
		LabelReference: resp.LabelURL,
		ServiceLevel:   serviceLevel(resp.ServiceType),
		TotalCharged:   carrier.Money{Amount: resp.NetCharge, Currency: resp.Currency},
	}, nil
}

// Track returns the tracking history for a FedEx shipment.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	resp, err := c.apiClient.GetTracking(ctx, trackingID)
	if err != nil {
		return nil, c.mapError(err)
	}

	events := make([]carrier.TrackingEvent, 0, len(resp.ScanEvents))
	for _, e := range resp.ScanEvents {
		ts, _ := time.Parse(time.RFC3339, e.Date)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      e.EventType,
			Description: e.EventDescription,
			Location:    e.City,
		})
	}
	return events, nil
}

// Cancel cancels a FedEx shipment.
func (c *Client) Cancel(ctx context.Context, trackingID string) error {
	resp, err := c.apiClient.CancelShipment(ctx, trackingID)
	if err != nil {
		return c.mapError(err)
	}
	if !resp.CancelledShipment {
		return carrier.NewError(Code, carrier.KindNotCancellable, "shipment already in transit")
	}
	return nil
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
		StreetLines: lines,
		City:        a.City,
		StateCode:   a.ProvinceCode,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
		Residential: a.IsResidential,
	}
}

func toWireLines(pkgs []carrier.Package) []WireLine {
	out := make([]WireLine, len(pkgs))
	for i, p := range pkgs {
		weightUnits := "KG"
		if p.WeightUnit == carrier.WeightLB {
			weightUnits = "LB"
		}
		dimUnits := "CM"
		if p.DimensionUnit == carrier.DimensionIN {
			dimUnits = "IN"
		}
		out[i] = WireLine{
			Weight: WireWeight{Units: weightUnits, Value: p.Weight},
			Dimensions: WireDimensions{
				Length: p.Length, Width: p.Width, Height: p.Height, Units: dimUnits,
			},
		}
	}
	return out
}

func serviceType(level carrier.ServiceLevel) string {
	switch level {
	case carrier.ServicePriority, carrier.ServiceExpress:
		return "FEDEX_INTERNATIONAL_PRIORITY"
	case carrier.ServiceEconomy, carrier.ServiceStandard:
		return "INTERNATIONAL_ECONOMY"
	default:
		return ""
	}
}

func serviceLevel(serviceType string) carrier.ServiceLevel {
	switch serviceType {
	case "FEDEX_INTERNATIONAL_PRIORITY":
		return carrier.ServicePriority
	case "INTERNATIONAL_ECONOMY":
		return carrier.ServiceEconomy
	default:
		return carrier.ServiceStandard
	}
}

func confidence(d RateDetail) float64 {
	if d.DeliveryGuarantee {
		return 0.93
	}
	return 0.82
}

func pickDetail(details []RateDetail, level carrier.ServiceLevel) RateDetail {
	if level != "" {
		want := serviceType(level)
		for _, d := range details {
			if d.ServiceType == want {
				return d
			}
		}
	}
	best := details[0]
	for _, d := range details[1:] {
		if d.NetCharge < best.NetCharge {
			best = d
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
		case apiErr.Code == "DESTINATION.POSTALCODE.INVALID" || apiErr.Code == "ADDRESS.INVALID":
			return carrier.NewError(Code, carrier.KindInvalidAddress, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "SERVICE.UNAVAILABLE.FOR.DESTINATION":
			return carrier.NewError(Code, carrier.KindNoService, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		default:
			return carrier.NewError(Code, carrier.KindUpstream, apiErr.Message).
				WithStatusCode(apiErr.Status).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return carrier.NewError(Code, carrier.KindTimeout, "FedEx did not answer in time").WithCause(err)
	}
	return carrier.NewError(Code, carrier.KindUpstream, "FedEx call failed").WithCause(err)
}

var (
	_ carrier.Adapter         = (*Client)(nil)
	_ carrier.RateQuoter      = (*Client)(nil)
	_ carrier.ShipmentCreator = (*Client)(nil)
	_ carrier.Tracker         = (*Client)(nil)
	_ carrier.Canceller       = (*Client)(nil)
)
