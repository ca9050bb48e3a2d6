// Package dhl provides the DHL Express carrier adapter.
package dhl

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Code is the registry identifier for this carrier.
const Code = "dhl"

// Profile returns DHL's immutable carrier profile.
func Profile() *carrier.Profile {
	return &carrier.Profile{
		Code: Code,
		Name: "DHL Express",
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapShipment,
			carrier.CapTracking,
			carrier.CapPickup,
			carrier.CapAddressValidate,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 10, Burst: 20},
		RateLimits: map[carrier.Capability]carrier.RatePolicy{
			carrier.CapQuote: {CallsPerSecond: 5, Burst: 10},
		},
		Transit: carrier.TransitModel{MinDays: 1, MaxDays: 6},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "DHL-Signature",
			Digest:          carrier.DigestHex,
		},
		CredentialTypes: []string{
			credentials.TypeAPIKey,
			credentials.TypeAPISecret,
			credentials.TypeAccountNumber,
			credentials.TypeWebhookSecret,
		},
	}
}

// Config holds DHL adapter configuration.
type Config struct {
	APIKey        string
	APISecret     string
	AccountNumber string
	BaseURL       string
	UseMock       bool
}

// Client is the DHL adapter. It translates the unified contract to DHL's
// wire format and maps upstream errors into the unified taxonomy.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a DHL adapter. With cfg.UseMock it uses the mock API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// NewWithAPIClient creates a DHL adapter with an injected API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger, tracer: tracer}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return Code
}

// Quote returns DHL's best offer for the request.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "dhl.quote")
		defer span.End()
	}
	c.logger.Ctx(ctx).Debug("requesting DHL rates",
		zap.String("origin", req.Origin.CountryCode),
		zap.String("destination", req.Destination.CountryCode),
		zap.Int("packages", len(req.Packages)),
	)

	apiReq := &RatesRequest{
		AccountNumber: c.config.AccountNumber,
		Origin:        toWireAddress(req.Origin),
		Destination:   toWireAddress(req.Destination),
		Packages:      toWirePieces(req.Packages),
		ProductCode:   productCode(req.ServiceLevel),
	}
	if len(req.Packages) > 0 {
		apiReq.DeclaredValue = req.Packages[0].DeclaredValue
		apiReq.Currency = req.Packages[0].Currency
	}

	resp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	if len(resp.Products) == 0 {
		return nil, carrier.NewError(Code, carrier.KindNoService, "no products offered for route")
	}

	best := pickProduct(resp.Products, req.ServiceLevel)
	return &carrier.Quote{
		CarrierCode:  Code,
		ServiceLevel: serviceLevel(best.ProductCode),
		ServiceName:  best.ProductName,
		Cost: carrier.CostBreakdown{
			Base:          carrier.Money{Amount: best.BasePrice, Currency: best.Currency},
			FuelSurcharge: carrier.Money{Amount: best.FuelSurcharge, Currency: best.Currency},
			Insurance:     carrier.Money{Amount: best.InsurancePrice, Currency: best.Currency},
			Taxes:         carrier.Money{Amount: best.TotalTax, Currency: best.Currency},
			Total:         carrier.Money{Amount: best.TotalPrice, Currency: best.Currency},
		},
		TransitDays: best.TransitDays,
		Confidence:  best.OnTimeReliability,
		UpstreamRef: best.QuoteID,
	}, nil
}

// CreateShipment books a shipment with DHL.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	apiReq := &ShipmentRequest{
		AccountNumber: c.config.AccountNumber,
		ProductCode:   productCode(req.Quote.ServiceLevel),
		QuoteID:       req.Quote.UpstreamRef,
		Origin:        toWireAddress(req.Origin),
		Destination:   toWireAddress(req.Destination),
		Packages:      toWirePieces(req.Packages),
		Reference:     req.Reference,
	}

	resp, err := c.apiClient.CreateShipment(ctx, apiReq)
	if err != nil {
		return nil, c.mapError(err)
	}
	return &carrier.Shipment{
		CarrierCode:    Code,
		TrackingID:     resp.TrackingNumber,
		LabelReference: resp.LabelURL,
		ServiceLevel:   serviceLevel(resp.ProductCode),
		TotalCharged:   carrier.Money{Amount: resp.TotalPrice, Currency: resp.Currency},
	}, nil
}

// Track returns the tracking history for a DHL shipment.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	resp, err := c.apiClient.GetTracking(ctx, trackingID)
	if err != nil {
		return nil, c.mapError(err)
	}

	events := make([]carrier.TrackingEvent, 0, len(resp.Events))
	for _, e := range resp.Events {
		ts, _ := time.Parse(time.RFC3339, e.Timestamp)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      e.StatusCode,
			Description: e.Description,
			Location:    e.Location,
		})
	}
	return events, nil
}

// Cancel cancels a DHL shipment.
func (c *Client) Cancel(ctx context.Context, trackingID string) error {
	resp, err := c.apiClient.CancelShipment(ctx, trackingID)
	if err != nil {
		return c.mapError(err)
	}
	if resp.Status != "cancelled" {
		return carrier.NewError(Code, carrier.KindNotCancellable,
			"shipment already in transit")
	}
	return nil
}

// ValidateAddress normalizes an address against DHL's directory.
func (c *Client) ValidateAddress(ctx context.Context, addr carrier.Address) (*carrier.Address, error) {
	resp, err := c.apiClient.ValidateAddress(ctx, &AddressRequest{Address: toWireAddress(addr)})
	if err != nil {
		return nil, c.mapError(err)
	}
	if !resp.Valid {
		return nil, carrier.NewError(Code, carrier.KindInvalidAddress, resp.Detail)
	}
	normalized := fromWireAddress(resp.Normalized)
	normalized.Name = addr.Name
	normalized.Phone = addr.Phone
	normalized.Email = addr.Email
	return &normalized, nil
}

// DecodeWebhook decodes DHL's tracking webhook envelope into the normalized
// update used by the ingestion pipeline.
func DecodeWebhook(payload []byte) (*carrier.TrackingUpdate, error) {
	var env struct {
		EventID        string `json:"eventId"`
		TrackingNumber string `json:"shipmentTrackingNumber"`
		StatusCode     string `json:"statusCode"`
		Description    string `json:"description"`
		ServiceArea    string `json:"serviceArea"`
		Timestamp      string `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if env.EventID == "" {
		return nil, errors.New("dhl webhook missing eventId")
	}
	occurred, _ := time.Parse(time.RFC3339, env.Timestamp)
	return &carrier.TrackingUpdate{
		CarrierCode: Code,
		EventID:     env.EventID,
		TrackingID:  env.TrackingNumber,
		Status:      env.StatusCode,
		Description: env.Description,
		Location:    env.ServiceArea,
		OccurredAt:  occurred,
	}, nil
}

// ============================================================================
// Conversion and mapping helpers
// ============================================================================

func toWireAddress(a carrier.Address) WireAddress {
	return WireAddress{
		AddressLine1: a.Line1,
		AddressLine2: a.Line2,
		City:         a.City,
		PostalCode:   a.PostalCode,
		CountryCode:  a.CountryCode,
		Province:     a.ProvinceCode,
	}
}

func fromWireAddress(w WireAddress) carrier.Address {
	return carrier.Address{
		Line1:        w.AddressLine1,
		Line2:        w.AddressLine2,
		City:         w.City,
		PostalCode:   w.PostalCode,
		CountryCode:  w.CountryCode,
		ProvinceCode: w.Province,
	}
}

func toWirePieces(pkgs []carrier.Package) []WirePiece {
	out := make([]WirePiece, len(pkgs))
	for i, p := range pkgs {
		out[i] = WirePiece{Weight: p.Weight, Length: p.Length, Width: p.Width, Height: p.Height}
	}
	return out
}

func productCode(level carrier.ServiceLevel) string {
	switch level {
	case carrier.ServiceExpress, carrier.ServicePriority:
		return "P"
	case carrier.ServiceEconomy, carrier.ServiceStandard:
		return "W"
	default:
		return ""
	}
}

func serviceLevel(code string) carrier.ServiceLevel {
	switch code {
	case "P":
		return carrier.ServiceExpress
	case "W":
		return carrier.ServiceEconomy
	default:
		return carrier.ServiceStandard
	}
}

// pickProduct returns the product matching the requested level, else the
// cheapest offer.
func pickProduct(products []Product, level carrier.ServiceLevel) Product {
	if level != "" {
		want := productCode(level)
		for _, p := range products {
			if p.ProductCode == want {
				return p
			}
		}
	}
	best := products[0]
	for _, p := range products[1:] {
		if p.TotalPrice < best.TotalPrice {
			best = p
		}
	}
	return best
}

// mapError translates DHL error shapes into the unified taxonomy. Nothing
// DHL-specific leaves this package.
func (c *Client) mapError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401 || apiErr.Status == 403:
			return carrier.NewError(Code, carrier.KindAuthentication, apiErr.Detail).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "INVALID_ADDRESS" || apiErr.Code == "ADDRESS_NOT_FOUND":
			return carrier.NewError(Code, carrier.KindInvalidAddress, apiErr.Detail).
				WithStatusCode(apiErr.Status).WithCause(err)
		case apiErr.Code == "NO_SERVICE":
			return carrier.NewError(Code, carrier.KindNoService, apiErr.Detail).
				WithStatusCode(apiErr.Status).WithCause(err)
		default:
			return carrier.NewError(Code, carrier.KindUpstream, apiErr.Detail).
				WithStatusCode(apiErr.Status).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return carrier.NewError(Code, carrier.KindTimeout, "DHL did not answer in time").WithCause(err)
	}
	return carrier.NewError(Code, carrier.KindUpstream, "DHL call failed").WithCause(err)
}

var (
	_ carrier.Adapter          = (*Client)(nil)
	_ carrier.RateQuoter       = (*Client)(nil)
	_ carrier.ShipmentCreator  = (*Client)(nil)
	_ carrier.Tracker          = (*Client)(nil)
	_ carrier.Canceller        = (*Client)(nil)
	_ carrier.AddressValidator = (*Client)(nil)
)
