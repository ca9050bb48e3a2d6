package ups

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnRate            func(ctx context.Context, req *RateRequest) (*RateResponse, error)
	OnShip            func(ctx context.Context, req *ShipRequest) (*ShipResponse, error)
	OnTrack           func(ctx context.Context, trackingNumber string) (*TrackResponse, error)
	OnValidateAddress func(ctx context.Context, req *XAVRequest) (*XAVResponse, error)
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

// Rate returns mock UPS rated shipments.
func (m *MockAPIClient) Rate(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnRate != nil {
		return m.OnRate(ctx, req)
	}
	return &RateResponse{
		RatedShipments: []RatedShipment{
			{
				ServiceCode:        "08",
				ServiceDescription: "UPS Worldwide Expedited",
				TransportCharge:    31.40,
				FuelSurcharge:      3.60,
				Taxes:              5.60,
				TotalCharge:        40.60,
				Currency:           "USD",
				BusinessDays:       3,
				GuaranteedDelivery: false,
				RateID:             "ups-r-" + uuid.New().String()[:8],
			},
			{
				ServiceCode:        "07",
				ServiceDescription: "UPS Worldwide Express",
				TransportCharge:    44.10,
				FuelSurcharge:      5.00,
				Taxes:              7.90,
				TotalCharge:        57.00,
				Currency:           "USD",
				BusinessDays:       1,
				GuaranteedDelivery: true,
				RateID:             "ups-r-" + uuid.New().String()[:8],
			},
		},
	}, nil
}

// Ship creates a mock shipment.
func (m *MockAPIClient) Ship(ctx context.Context, req *ShipRequest) (*ShipResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnShip != nil {
		return m.OnShip(ctx, req)
	}
	return &ShipResponse{
		TrackingNumber: "1Z" + uuid.New().String()[:10],
		LabelURL:       "https://labels.ups.example/" + uuid.New().String()[:8] + ".pdf",
		ServiceCode:    req.ServiceCode,
		TotalCharge:    40.60,
		Currency:       "USD",
	}, nil
}

// Track returns mock activity.
func (m *MockAPIClient) Track(ctx context.Context, trackingNumber string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, trackingNumber)
	}
	now := time.Now()
	return &TrackResponse{
		TrackingNumber: trackingNumber,
		Activity: []WireActivity{
			{
				Timestamp:   now.Add(-24 * time.Hour).Format(time.RFC3339),
				StatusCode:  "OR",
				Description: "Origin scan",
				City:        "Guadalajara",
			},
		},
	}, nil
}

// ValidateAddress validates a mock address.
func (m *MockAPIClient) ValidateAddress(ctx context.Context, req *XAVRequest) (*XAVResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnValidateAddress != nil {
		return m.OnValidateAddress(ctx, req)
	}
	if req.Address.PostalCode == "" {
		return &XAVResponse{Valid: false, Reason: "postal code required"}, nil
	}
	return &XAVResponse{Valid: true, Candidate: req.Address}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
