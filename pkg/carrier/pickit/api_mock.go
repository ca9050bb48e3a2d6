package pickit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnBudget            func(ctx context.Context, req *BudgetRequest) (*BudgetResponse, error)
	OnCreateTransaction func(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error)
	OnGetTracking       func(ctx context.Context, transactionID string) (*TrackingResponse, error)
	OnCancelTransaction func(ctx context.Context, transactionID string) (*CancelResponse, error)
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

// Budget returns mock delivery options.
func (m *MockAPIClient) Budget(ctx context.Context, req *BudgetRequest) (*BudgetResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnBudget != nil {
		return m.OnBudget(ctx, req)
	}
	return &BudgetResponse{
		BudgetID: "bud-" + uuid.New().String()[:8],
		Options: []WireOption{
			{
				ServiceType:   "HOME_STANDARD",
				ServiceName:   "Pickit Home Standard",
				Price:         9.10,
				Tax:           1.73,
				TotalPrice:    10.83,
				Currency:      "USD",
				EstimatedDays: 4,
			},
			{
				ServiceType:   "POINT_EXPRESS",
				ServiceName:   "Pickit Point Express",
				Price:         6.40,
				Tax:           1.22,
				TotalPrice:    7.62,
				Currency:      "USD",
				EstimatedDays: 2,
				PointDelivery: true,
			},
		},
	}, nil
}

// CreateTransaction creates a mock transaction.
func (m *MockAPIClient) CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateTransaction != nil {
		return m.OnCreateTransaction(ctx, req)
	}
	return &TransactionResponse{
		TransactionID: "trx-" + uuid.New().String()[:8],
		TrackingCode:  "PK" + uuid.New().String()[:10],
		LabelURL:      "https://labels.pickit.example/" + uuid.New().String()[:8] + ".pdf",
		ServiceType:   req.ServiceType,
		TotalPrice:    10.83,
		Currency:      "USD",
	}, nil
}

// GetTracking returns mock history.
func (m *MockAPIClient) GetTracking(ctx context.Context, transactionID string) (*TrackingResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, transactionID)
	}
	now := time.Now()
	return &TrackingResponse{
		TransactionID: transactionID,
		History: []WireEvent{
			{
				Date:        now.Add(-48 * time.Hour).Format(time.RFC3339),
				Status:      "CREATED",
				Description: "Transaction created",
				Location:    "Buenos Aires",
			},
			{
				Date:        now.Add(-6 * time.Hour).Format(time.RFC3339),
				Status:      "AT_POINT",
				Description: "Parcel available at pickup point",
				Location:    "Buenos Aires",
			},
		},
	}, nil
}

// CancelTransaction cancels a mock transaction.
func (m *MockAPIClient) CancelTransaction(ctx context.Context, transactionID string) (*CancelResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelTransaction != nil {
		return m.OnCancelTransaction(ctx, transactionID)
	}
	return &CancelResponse{Cancelled: true}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
