package interrapidisimo

import (
	"context"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnTariff        func(ctx context.Context, req *TariffRequest) (*TariffResponse, error)
	OnTrackShipment func(ctx context.Context, guideNumber string) (*TrackResponse, error)
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

// Tariff returns mock tariffs.
func (m *MockAPIClient) Tariff(ctx context.Context, req *TariffRequest) (*TariffResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTariff != nil {
		return m.OnTariff(ctx, req)
	}
	return &TariffResponse{
		Tariffs: []Tariff{
			{
				ServiceCode:  "STD",
				ServiceName:  "Mensajeria Estandar",
				FreightValue: 12800,
				HandlingFee:  1500,
				Tax:          2717,
				TotalValue:   17017,
				Currency:     "COP",
				DeliveryDays: 3,
			},
		},
	}, nil
}

// TrackShipment returns mock states.
func (m *MockAPIClient) TrackShipment(ctx context.Context, guideNumber string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrackShipment != nil {
		return m.OnTrackShipment(ctx, guideNumber)
	}
	now := time.Now()
	return &TrackResponse{
		GuideNumber: guideNumber,
		States: []WireState{
			{
				Timestamp:   now.Add(-36 * time.Hour).Format(time.RFC3339),
				StateCode:   "ADMITIDO",
				Description: "Envio admitido",
				City:        "Medellin",
			},
			{
				Timestamp:   now.Add(-12 * time.Hour).Format(time.RFC3339),
				StateCode:   "EN_REPARTO",
				Description: "Envio en reparto",
				City:        "Cali",
			},
		},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
