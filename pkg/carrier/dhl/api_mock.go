package dhl

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing and for
// running the service without a DHL account.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetRates        func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	OnCreateShipment  func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnGetTracking     func(ctx context.Context, trackingNumber string) (*TrackingResponse, error)
	OnCancelShipment  func(ctx context.Context, trackingNumber string) (*CancelResponse, error)
	OnValidateAddress func(ctx context.Context, req *AddressRequest) (*AddressResponse, error)
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
		return &APIError{Status: 500, Code: "MOCK_ERROR", Detail: "simulated API error"}
	}
	return nil
}

// GetRates returns mock DHL products.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}
	return &RatesResponse{
		Products: []Product{
			{
				ProductCode:       "P",
				ProductName:       "DHL Express Worldwide",
				BasePrice:         38.20,
				FuelSurcharge:     4.10,
				InsurancePrice:    1.20,
				TotalTax:          6.98,
				TotalPrice:        50.48,
				Currency:          "USD",
				TransitDays:       2,
				OnTimeReliability: 0.95,
				QuoteID:           "dhl-q-" + uuid.New().String()[:8],
			},
			{
				ProductCode:       "W",
				ProductName:       "DHL Economy Select",
				BasePrice:         24.60,
				FuelSurcharge:     2.70,
				InsurancePrice:    1.20,
				TotalTax:          4.56,
				TotalPrice:        33.06,
				Currency:          "USD",
				TransitDays:       5,
				OnTimeReliability: 0.88,
				QuoteID:           "dhl-q-" + uuid.New().String()[:8],
			},
		},
	}, nil
}

// CreateShipment creates a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}
	return &ShipmentResponse{
		TrackingNumber: "JD0" + uuid.New().String()[:10],
		LabelURL:       "https://labels.dhl.example/" + uuid.New().String()[:8] + ".pdf",
		ProductCode:    req.ProductCode,
		TotalPrice:     50.48,
		Currency:       "USD",
	}, nil
}

// GetTracking returns mock tracking events.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingNumber)
	}
	now := time.Now()
	return &TrackingResponse{
		TrackingNumber: trackingNumber,
		Events: []WireEvent{
			{
				Timestamp:   now.Add(-48 * time.Hour).Format(time.RFC3339),
				StatusCode:  "PU",
				Description: "Shipment picked up",
				Location:    "MEX",
			},
			{
				Timestamp:   now.Add(-12 * time.Hour).Format(time.RFC3339),
				StatusCode:  "AR",
				Description: "Arrived at sort facility",
				Location:    "CVG",
			},
		},
	}, nil
}

// CancelShipment cancels a mock shipment.
func (m *MockAPIClient) CancelShipment(ctx context.Context, trackingNumber string) (*CancelResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelShipment != nil {
		return m.OnCancelShipment(ctx, trackingNumber)
	}
	return &CancelResponse{TrackingNumber: trackingNumber, Status: "cancelled"}, nil
}

// ValidateAddress validates a mock address.
func (m *MockAPIClient) ValidateAddress(ctx context.Context, req *AddressRequest) (*AddressResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnValidateAddress != nil {
		return m.OnValidateAddress(ctx, req)
	}
	normalized := req.Address
	if normalized.PostalCode == "" {
		return &AddressResponse{Valid: false, Detail: "postal code required"}, nil
	}
	return &AddressResponse{Valid: true, Normalized: normalized}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
