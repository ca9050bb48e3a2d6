package dhl

import (
	"context"
)

// APIClient defines the DHL Express API operations the adapter needs. The
// HTTP implementation talks to the real gateway; the mock implementation
// backs tests and mock mode.
type APIClient interface {
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error)
	CancelShipment(ctx context.Context, trackingNumber string) (*CancelResponse, error)
	ValidateAddress(ctx context.Context, req *AddressRequest) (*AddressResponse, error)
}

// ============================================================================
// Wire types (DHL Express MyDHL-style JSON REST)
// ============================================================================

// RatesRequest is the body for POST /rates.
type RatesRequest struct {
	AccountNumber string       `json:"customerDetails"`
	Origin        WireAddress  `json:"originAddress"`
	Destination   WireAddress  `json:"destinationAddress"`
	Packages      []WirePiece  `json:"packages"`
	ProductCode   string       `json:"productCode,omitempty"`
	DeclaredValue float64      `json:"declaredValue,omitempty"`
	Currency      string       `json:"currency,omitempty"`
}

// WireAddress is an address in DHL's wire format.
type WireAddress struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"cityName"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"`
	Province     string `json:"provinceCode,omitempty"`
}

// WirePiece is one package in DHL's wire format.
type WirePiece struct {
	Weight float64 `json:"weight"` // kg
	Length float64 `json:"length"` // cm
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RatesResponse is the body of a successful rates call.
type RatesResponse struct {
	Products []Product `json:"products"`
}

// Product is one DHL service offer.
type Product struct {
	ProductCode       string  `json:"productCode"`
	ProductName       string  `json:"productName"`
	BasePrice         float64 `json:"basePrice"`
	FuelSurcharge     float64 `json:"fuelSurcharge"`
	InsurancePrice    float64 `json:"insurancePrice"`
	TotalTax          float64 `json:"totalTax"`
	TotalPrice        float64 `json:"totalPrice"`
	Currency          string  `json:"priceCurrency"`
	TransitDays       int     `json:"totalTransitDays"`
	OnTimeReliability float64 `json:"onTimeReliability"` // [0,1]
	QuoteID           string  `json:"quoteId"`
}

// ShipmentRequest is the body for POST /shipments.
type ShipmentRequest struct {
	AccountNumber string      `json:"accountNumber"`
	ProductCode   string      `json:"productCode"`
	QuoteID       string      `json:"quoteId,omitempty"`
	Origin        WireAddress `json:"originAddress"`
	Destination   WireAddress `json:"destinationAddress"`
	Packages      []WirePiece `json:"packages"`
	Reference     string      `json:"customerReference,omitempty"`
}

// ShipmentResponse is the body of a successful shipment creation.
type ShipmentResponse struct {
	TrackingNumber string  `json:"shipmentTrackingNumber"`
	LabelURL       string  `json:"labelUrl"`
	ProductCode    string  `json:"productCode"`
	TotalPrice     float64 `json:"totalPrice"`
	Currency       string  `json:"priceCurrency"`
}

// TrackingResponse is the body of GET /shipments/{trackingNumber}/tracking.
type TrackingResponse struct {
	TrackingNumber string      `json:"shipmentTrackingNumber"`
	Events         []WireEvent `json:"events"`
}

// WireEvent is one tracking milestone in DHL's wire format.
type WireEvent struct {
	Timestamp   string `json:"timestamp"` // RFC3339
	StatusCode  string `json:"statusCode"`
	Description string `json:"description"`
	Location    string `json:"serviceArea,omitempty"`
}

// CancelResponse is the body of DELETE /shipments/{trackingNumber}.
type CancelResponse struct {
	TrackingNumber string `json:"shipmentTrackingNumber"`
	Status         string `json:"status"` // "cancelled" | "not_cancellable"
}

// AddressRequest is the body for POST /address-validate.
type AddressRequest struct {
	Address WireAddress `json:"address"`
}

// AddressResponse is the body of a successful address validation.
type AddressResponse struct {
	Valid      bool        `json:"valid"`
	Normalized WireAddress `json:"normalizedAddress"`
	Detail     string      `json:"detail,omitempty"`
}

// APIError is DHL's error envelope.
type APIError struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Detail
}
