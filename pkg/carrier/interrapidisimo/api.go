package interrapidisimo

import (
	"context"
)

// APIClient defines the Interrapidisimo API operations the adapter needs.
type APIClient interface {
	Tariff(ctx context.Context, req *TariffRequest) (*TariffResponse, error)
	TrackShipment(ctx context.Context, guideNumber string) (*TrackResponse, error)
}

// ============================================================================
// Wire types (Interrapidisimo JSON REST)
// ============================================================================

// TariffRequest is the body for POST /api/v1/tarifas.
type TariffRequest struct {
	OriginCity      string  `json:"ciudadOrigen"`
	OriginPostal    string  `json:"codigoPostalOrigen"`
	DestCity        string  `json:"ciudadDestino"`
	DestPostal      string  `json:"codigoPostalDestino"`
	DestCountry     string  `json:"paisDestino"`
	WeightKG        float64 `json:"pesoKg"`
	Pieces          int     `json:"numeroPiezas"`
	DeclaredValue   float64 `json:"valorDeclarado,omitempty"`
}

// TariffResponse is the body of a successful tariff call.
type TariffResponse struct {
	Tariffs []Tariff `json:"tarifas"`
}

// Tariff is one Interrapidisimo service offer.
type Tariff struct {
	ServiceCode  string  `json:"codigoServicio"`
	ServiceName  string  `json:"nombreServicio"`
	FreightValue float64 `json:"valorFlete"`
	HandlingFee  float64 `json:"valorManejo"`
	Tax          float64 `json:"valorIva"`
	TotalValue   float64 `json:"valorTotal"`
	Currency     string  `json:"moneda"`
	DeliveryDays int     `json:"diasEntrega"`
}

// TrackResponse is the body of a tracking call.
type TrackResponse struct {
	GuideNumber string      `json:"numeroGuia"`
	States      []WireState `json:"estados"`
}

// WireState is one tracking milestone.
type WireState struct {
	Timestamp   string `json:"fechaHora"` // RFC3339
	StateCode   string `json:"codigoEstado"`
	Description string `json:"descripcion"`
	City        string `json:"ciudad,omitempty"`
}

// APIError is Interrapidisimo's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"codigo"`
	Message string `json:"mensaje"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
