// Package mock provides a scriptable carrier adapter for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
)

// Client is a scriptable mock carrier. The zero value answers every
// operation with plausible canned data; tests override behavior per
// operation with the Quote*/Track* fields or the On* hooks.
type Client struct {
	code string

	// Delay is applied before every operation, honoring ctx cancellation.
	Delay time.Duration

	// Err, when set, fails every operation.
	Err error

	// QuoteResult overrides the canned quote.
	QuoteResult *carrier.Quote

	OnQuote          func(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error)
	OnCreateShipment func(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error)
	OnTrack          func(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error)
	OnCancel         func(ctx context.Context, trackingID string) error
}

// New creates a mock carrier registered under the given code.
func New(code string) *Client {
	return &Client{code: code}
}

// Profile returns a profile for a mock carrier under the given code.
func Profile(code string) *carrier.Profile {
	return &carrier.Profile{
		Code: code,
		Name: "Mock " + code,
		Capabilities: carrier.Capabilities{
			carrier.CapQuote,
			carrier.CapShipment,
			carrier.CapTracking,
		},
		DefaultRateLimit: carrier.RatePolicy{CallsPerSecond: 100, Burst: 200},
		Transit:          carrier.TransitModel{MinDays: 1, MaxDays: 7},
		Webhook: carrier.WebhookSpec{
			SignatureHeader: "X-Mock-Signature",
			Digest:          carrier.DigestHex,
		},
	}
}

// Code returns the carrier identifier.
func (c *Client) Code() string {
	return c.code
}

func (c *Client) wait(ctx context.Context) error {
	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.Err
}

// Quote returns the scripted quote, or a canned standard offer.
func (c *Client) Quote(ctx context.Context, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.OnQuote != nil {
		return c.OnQuote(ctx, req)
	}
	if c.QuoteResult != nil {
		q := *c.QuoteResult
		q.CarrierCode = c.code
		return &q, nil
	}
	return &carrier.Quote{
		CarrierCode:  c.code,
		ServiceLevel: carrier.ServiceStandard,
		ServiceName:  fmt.Sprintf("%s Standard", c.code),
		Cost: carrier.CostBreakdown{
			Base:          carrier.Money{Amount: 12.50, Currency: "USD"},
			FuelSurcharge: carrier.Money{Amount: 1.50, Currency: "USD"},
			Taxes:         carrier.Money{Amount: 1.82, Currency: "USD"},
			Total:         carrier.Money{Amount: 15.82, Currency: "USD"},
		},
		TransitDays: 5,
		Confidence:  0.80,
	}, nil
}

// CreateShipment books a mock shipment.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.OnCreateShipment != nil {
		return c.OnCreateShipment(ctx, req)
	}
	now := time.Now()
	trackingID := fmt.Sprintf("MK%s%d", c.code[:minInt(3, len(c.code))], now.UnixNano()%1000000000)
	return &carrier.Shipment{
		CarrierCode:    c.code,
		TrackingID:     trackingID,
		LabelReference: fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.code, trackingID),
		ServiceLevel:   req.Quote.ServiceLevel,
		TotalCharged:   req.Quote.Cost.Total,
	}, nil
}

// Track returns a mock tracking history.
func (c *Client) Track(ctx context.Context, trackingID string) ([]carrier.TrackingEvent, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.OnTrack != nil {
		return c.OnTrack(ctx, trackingID)
	}
	now := time.Now()
	return []carrier.TrackingEvent{
		{
			Timestamp:   now.Add(-24 * time.Hour),
			Status:      "PICKED_UP",
			Description: "Shipment picked up",
			Location:    "Origin depot",
		},
		{
			Timestamp:   now.Add(-2 * time.Hour),
			Status:      "IN_TRANSIT",
			Description: "Shipment in transit",
			Location:    "Sorting hub",
		},
	}, nil
}

// Cancel cancels a mock shipment.
func (c *Client) Cancel(ctx context.Context, trackingID string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if c.OnCancel != nil {
		return c.OnCancel(ctx, trackingID)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var (
	_ carrier.Adapter         = (*Client)(nil)
	_ carrier.RateQuoter      = (*Client)(nil)
	_ carrier.ShipmentCreator = (*Client)(nil)
	_ carrier.Tracker         = (*Client)(nil)
	_ carrier.Canceller       = (*Client)(nil)
)
