package ups

import (
	"context"
)

// APIClient defines the UPS API operations the adapter needs.
type APIClient interface {
	Rate(ctx context.Context, req *RateRequest) (*RateResponse, error)
	Ship(ctx context.Context, req *ShipRequest) (*ShipResponse, error)
	Track(ctx context.Context, trackingNumber string) (*TrackResponse, error)
	ValidateAddress(ctx context.Context, req *XAVRequest) (*XAVResponse, error)
}

// ============================================================================
// Wire types (UPS JSON REST)
// ============================================================================

// RateRequest is the body for POST /api/rating/v2409/Shop.
type RateRequest struct {
	ShipFrom    WireAddress   `json:"shipFrom"`
	ShipTo      WireAddress   `json:"shipTo"`
	Packages    []WirePackage `json:"packages"`
	ServiceCode string        `json:"serviceCode,omitempty"`
}

// WireAddress is an address in UPS's wire format.
type WireAddress struct {
	AddressLine       []string `json:"addressLine"`
	City              string   `json:"city"`
	StateProvinceCode string   `json:"stateProvinceCode,omitempty"`
	PostalCode        string   `json:"postalCode"`
	CountryCode       string   `json:"countryCode"`
}

// WirePackage is one package in UPS's wire format.
type WirePackage struct {
	WeightKG float64 `json:"weightKg"`
	LengthCM float64 `json:"lengthCm"`
	WidthCM  float64 `json:"widthCm"`
	HeightCM float64 `json:"heightCm"`
}

// RateResponse is the body of a successful rate call.
type RateResponse struct {
	RatedShipments []RatedShipment `json:"ratedShipments"`
}

// RatedShipment is one UPS service offer.
type RatedShipment struct {
	ServiceCode        string  `json:"serviceCode"`
	ServiceDescription string  `json:"serviceDescription"`
	TransportCharge    float64 `json:"transportationCharge"`
	FuelSurcharge      float64 `json:"fuelSurcharge"`
	Taxes              float64 `json:"totalTaxes"`
	TotalCharge        float64 `json:"totalCharges"`
	Currency           string  `json:"currencyCode"`
	BusinessDays       int     `json:"businessDaysInTransit"`
	GuaranteedDelivery bool    `json:"guaranteedDelivery"`
	RateID             string  `json:"rateId"`
}

// ShipRequest is the body for POST /api/shipments/v2409/ship.
type ShipRequest struct {
	ShipFrom    WireAddress   `json:"shipFrom"`
	ShipTo      WireAddress   `json:"shipTo"`
	Packages    []WirePackage `json:"packages"`
	ServiceCode string        `json:"serviceCode"`
	Reference   string        `json:"reference,omitempty"`
}

// ShipResponse is the body of a successful ship call.
type ShipResponse struct {
	TrackingNumber string  `json:"trackingNumber"`
	LabelURL       string  `json:"labelUrl"`
	ServiceCode    string  `json:"serviceCode"`
	TotalCharge    float64 `json:"totalCharges"`
	Currency       string  `json:"currencyCode"`
}

// TrackResponse is the body of a tracking call.
type TrackResponse struct {
	TrackingNumber string         `json:"trackingNumber"`
	Activity       []WireActivity `json:"activity"`
}

// WireActivity is one tracking milestone.
type WireActivity struct {
	Timestamp   string `json:"timestamp"` // RFC3339
	StatusCode  string `json:"statusCode"`
	Description string `json:"description"`
	City        string `json:"city,omitempty"`
}

// XAVRequest is the body for address validation.
type XAVRequest struct {
	Address WireAddress `json:"address"`
}

// XAVResponse is the body of a successful address validation.
type XAVResponse struct {
	Valid     bool        `json:"valid"`
	Candidate WireAddress `json:"candidate"`
	Reason    string      `json:"reason,omitempty"`
}

// APIError is UPS's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
