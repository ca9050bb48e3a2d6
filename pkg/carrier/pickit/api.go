package pickit

import (
	"context"
)

// APIClient defines the Pickit API operations the adapter needs.
type APIClient interface {
	Budget(ctx context.Context, req *BudgetRequest) (*BudgetResponse, error)
	CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error)
	GetTracking(ctx context.Context, transactionID string) (*TrackingResponse, error)
	CancelTransaction(ctx context.Context, transactionID string) (*CancelResponse, error)
}

// ============================================================================
// Wire types (Pickit JSON REST)
// ============================================================================

// BudgetRequest is the body for POST /apiV2/budget.
type BudgetRequest struct {
	Origin      WirePoint  `json:"origin"`
	Destination WirePoint  `json:"destination"`
	Parcels     []WireItem `json:"parcels"`
	ServiceType string     `json:"serviceType,omitempty"`
}

// WirePoint is an origin or destination in Pickit's wire format.
type WirePoint struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// WireItem is one parcel in Pickit's wire format.
type WireItem struct {
	WeightKG float64 `json:"weight"`
	LengthCM float64 `json:"length"`
	WidthCM  float64 `json:"width"`
	HeightCM float64 `json:"height"`
}

// BudgetResponse is the body of a successful budget call.
type BudgetResponse struct {
	BudgetID string       `json:"budgetId"`
	Options  []WireOption `json:"options"`
}

// WireOption is one Pickit delivery option.
type WireOption struct {
	ServiceType   string  `json:"serviceType"`
	ServiceName   string  `json:"serviceName"`
	Price         float64 `json:"price"`
	Tax           float64 `json:"tax"`
	TotalPrice    float64 `json:"totalPrice"`
	Currency      string  `json:"currency"`
	EstimatedDays int     `json:"estimatedDays"`
	PointDelivery bool    `json:"pointDelivery"`
}

// TransactionRequest is the body for POST /apiV2/transaction.
type TransactionRequest struct {
	BudgetID    string    `json:"budgetId,omitempty"`
	Origin      WirePoint `json:"origin"`
	Destination WirePoint `json:"destination"`
	Parcels     []WireItem `json:"parcels"`
	ServiceType string    `json:"serviceType"`
	Reference   string    `json:"reference,omitempty"`
}

// TransactionResponse is the body of a successful transaction call.
type TransactionResponse struct {
	TransactionID string  `json:"transactionId"`
	TrackingCode  string  `json:"trackingCode"`
	LabelURL      string  `json:"labelUrl"`
	ServiceType   string  `json:"serviceType"`
	TotalPrice    float64 `json:"totalPrice"`
	Currency      string  `json:"currency"`
}

// TrackingResponse is the body of a tracking call.
type TrackingResponse struct {
	TransactionID string      `json:"transactionId"`
	History       []WireEvent `json:"history"`
}

// WireEvent is one tracking milestone.
type WireEvent struct {
	Date        string `json:"date"` // RFC3339
	Status      string `json:"status"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// CancelResponse is the body of a cancel call.
type CancelResponse struct {
	Cancelled bool   `json:"cancelled"`
	Reason    string `json:"reason,omitempty"`
}

// APIError is Pickit's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
