package servientrega

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetRates    func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	OnCreateGuide func(ctx context.Context, req *GuideRequest) (*GuideResponse, error)
	OnGetTracking func(ctx context.Context, guideNumber string) (*TrackingResponse, error)
	OnCancelGuide func(ctx context.Context, guideNumber string) (*CancelResponse, error)
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
		return &APIError{Code: "MOCK_ERROR", Description: "simulated API error"}
	}
	return nil
}

// GetRates returns mock Servientrega estimates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}
	return &RatesResponse{
		Estimates: []Estimate{
			{
				ServiceID:   "INDUSTRIAL",
				ServiceName: "Mercancia Industrial",
				BasePrice:   15200,
				Surcharge:   1900,
				Tax:         3249,
				TotalPrice:  20349,
				Currency:    "COP",
				TransitDays: 4,
			},
			{
				ServiceID:   "PREMIER",
				ServiceName: "Mercancia Premier",
				BasePrice:   22800,
				Surcharge:   2400,
				Tax:         4788,
				TotalPrice:  29988,
				Currency:    "COP",
				TransitDays: 2,
			},
		},
	}, nil
}

// CreateGuide creates a mock guide.
func (m *MockAPIClient) CreateGuide(ctx context.Context, req *GuideRequest) (*GuideResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateGuide != nil {
		return m.OnCreateGuide(ctx, req)
	}
	return &GuideResponse{
		GuideNumber: "20" + uuid.New().String()[:8],
		LabelURL:    "https://rotulos.servientrega.example/" + uuid.New().String()[:8] + ".pdf",
		TotalPrice:  20349,
		Currency:    "COP",
		ServiceID:   req.ServiceID,
	}, nil
}

// GetTracking returns mock movements.
func (m *MockAPIClient) GetTracking(ctx context.Context, guideNumber string) (*TrackingResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, guideNumber)
	}
	yesterday := time.Now().Add(-24 * time.Hour)
	return &TrackingResponse{
		GuideNumber: guideNumber,
		Movements: []Movement{
			{
				Date:        yesterday.Format("2006-01-02"),
				Time:        "08:15:00",
				Status:      "RECOGIDO",
				Description: "Envio recogido en origen",
				City:        "Bogota",
			},
			{
				Date:        yesterday.Format("2006-01-02"),
				Time:        "19:40:00",
				Status:      "EN_TRANSITO",
				Description: "Envio en centro de clasificacion",
				City:        "Bogota",
			},
		},
	}, nil
}

// CancelGuide cancels a mock guide.
func (m *MockAPIClient) CancelGuide(ctx context.Context, guideNumber string) (*CancelResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelGuide != nil {
		return m.OnCancelGuide(ctx, guideNumber)
	}
	return &CancelResponse{GuideCancelled: true, Reason: "Anulacion exitosa"}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
