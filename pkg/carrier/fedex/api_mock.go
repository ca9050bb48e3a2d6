package fedex

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetRates       func(ctx context.Context, req *RateRequest) (*RateReply, error)
	OnCreateShipment func(ctx context.Context, req *ShipRequest) (*ShipReply, error)
	OnGetTracking    func(ctx context.Context, trackingNumber string) (*TrackReply, error)
	OnCancelShipment func(ctx context.Context, trackingNumber string) (*CancelReply, error)
}

// NewMockAPIClient creates a mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate(ctx context.Context) error {
	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.SimulateErrors {
		return &APIError{Status: 500, Code: "MOCK_ERROR", Message: "simulated API error"}
	}
	return nil
}

// GetRates returns mock FedEx rate details.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}
	return &RateReply{
		QuoteID: "fdx-q-" + uuid.New().String()[:8],
		RateDetails: []RateDetail{
			{
				ServiceType:       "FEDEX_INTERNATIONAL_PRIORITY",
				ServiceName:       "FedEx International Priority",
				BaseCharge:        41.00,
				FuelSurcharge:     4.90,
				InsuredCharge:     0.80,
				Taxes:             7.40,
				NetCharge:         54.10,
				Currency:          "USD",
				TransitDays:       2,
				DeliveryGuarantee: true,
			},
			{
				ServiceType:       "INTERNATIONAL_ECONOMY",
				ServiceName:       "FedEx International Economy",
				BaseCharge:        27.30,
				FuelSurcharge:     3.20,
				InsuredCharge:     0.80,
				Taxes:             5.00,
				NetCharge:         36.30,
				Currency:          "USD",
				TransitDays:       4,
				DeliveryGuarantee: false,
			},
		},
	}, nil
}

// CreateShipment creates a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipRequest) (*ShipReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}
	return &ShipReply{
		TrackingNumber: "7" + uuid.New().String()[:11],
		LabelURL:       "https://labels.fedex.example/" + uuid.New().String()[:8] + ".pdf",
		ServiceType:    req.ServiceType,
		NetCharge:      54.10,
		Currency:       "USD",
	}, nil
}

// GetTracking returns mock scan events.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingNumber)
	}
	now := time.Now()
	return &TrackReply{
		TrackingNumber: trackingNumber,
		ScanEvents: []ScanEvent{
			{
				Date:             now.Add(-36 * time.Hour).Format(time.RFC3339),
				EventType:        "PU",
				EventDescription: "Picked up",
				City:             "MONTERREY",
			},
			{
				Date:             now.Add(-6 * time.Hour).Format(time.RFC3339),
				EventType:        "IT",
				EventDescription: "In transit",
				City:             "MEMPHIS",
			},
		},
	}, nil
}

// CancelShipment cancels a mock shipment.
func (m *MockAPIClient) CancelShipment(ctx context.Context, trackingNumber string) (*CancelReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelShipment != nil {
		return m.OnCancelShipment(ctx, trackingNumber)
	}
	return &CancelReply{TrackingNumber: trackingNumber, CancelledShipment: true}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
