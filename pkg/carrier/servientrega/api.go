package servientrega

import (
	"context"
)

// APIClient defines the Servientrega web service operations the adapter needs.
type APIClient interface {
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	CreateGuide(ctx context.Context, req *GuideRequest) (*GuideResponse, error)
	GetTracking(ctx context.Context, guideNumber string) (*TrackingResponse, error)
	CancelGuide(ctx context.Context, guideNumber string) (*CancelResponse, error)
}

// ============================================================================
// Wire types (Servientrega SOAP web services)
// ============================================================================

// RatesRequest holds the inputs for the CotizarEnvio operation.
type RatesRequest struct {
	OriginCity            string
	OriginPostalCode      string
	DestinationCity       string
	DestinationPostalCode string
	DestinationCountry    string
	TotalWeightKG         float64
	TotalPieces           int
	DeclaredValue         float64
}

// RatesResponse is the parsed result of CotizarEnvio.
type RatesResponse struct {
	Estimates []Estimate
}

// Estimate is one Servientrega service offer.
type Estimate struct {
	ServiceID   string
	ServiceName string
	BasePrice   float64
	Surcharge   float64
	Tax         float64
	TotalPrice  float64
	Currency    string
	TransitDays int
}

// WireAddress is an address in Servientrega's wire format.
type WireAddress struct {
	Name       string
	Company    string
	Street     string
	City       string
	Province   string
	PostalCode string
	Country    string
	Phone      string
}

// GuideRequest holds the inputs for the GenerarGuia operation.
type GuideRequest struct {
	Sender        WireAddress
	Receiver      WireAddress
	ServiceID     string
	TotalWeightKG float64
	TotalPieces   int
	DeclaredValue float64
	Reference     string
}

// GuideResponse is the parsed result of GenerarGuia.
type GuideResponse struct {
	GuideNumber string
	LabelURL    string
	TotalPrice  float64
	Currency    string
	ServiceID   string
}

// TrackingResponse is the parsed result of ConsultarGuia.
type TrackingResponse struct {
	GuideNumber string
	Movements   []Movement
}

// Movement is one tracking milestone for a guide.
type Movement struct {
	Date        string // "2006-01-02"
	Time        string // "15:04:05"
	Status      string
	Description string
	City        string
}

// CancelResponse is the parsed result of AnularGuia.
type CancelResponse struct {
	GuideCancelled bool
	Reason         string
}

// APIError represents an error from the Servientrega web services.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}
