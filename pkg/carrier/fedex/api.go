package fedex

import (
	"context"
)

// APIClient defines the FedEx API operations the adapter needs.
type APIClient interface {
	GetRates(ctx context.Context, req *RateRequest) (*RateReply, error)
	CreateShipment(ctx context.Context, req *ShipRequest) (*ShipReply, error)
	GetTracking(ctx context.Context, trackingNumber string) (*TrackReply, error)
	CancelShipment(ctx context.Context, trackingNumber string) (*CancelReply, error)
}

// ============================================================================
// Wire types (FedEx JSON REST)
// ============================================================================

// RateRequest is the body for POST /rate/v1/rates/quotes.
type RateRequest struct {
	AccountNumber AccountNumber `json:"accountNumber"`
	Shipment      WireShipment  `json:"requestedShipment"`
}

// AccountNumber wraps the account value as FedEx expects.
type AccountNumber struct {
	Value string `json:"value"`
}

// WireShipment describes the shipment being rated or shipped.
type WireShipment struct {
	Shipper       WireParty   `json:"shipper"`
	Recipient     WireParty   `json:"recipient"`
	PackageLines  []WireLine  `json:"requestedPackageLineItems"`
	ServiceType   string      `json:"serviceType,omitempty"`
	PickupType    string      `json:"pickupType"`
	Reference     string      `json:"customerReference,omitempty"`
}

// WireParty is a shipper or recipient.
type WireParty struct {
	Address WireAddress `json:"address"`
}

// WireAddress is an address in FedEx's wire format.
type WireAddress struct {
	StreetLines []string `json:"streetLines"`
	City        string   `json:"city"`
	StateCode   string   `json:"stateOrProvinceCode,omitempty"`
	PostalCode  string   `json:"postalCode"`
	CountryCode string   `json:"countryCode"`
	Residential bool     `json:"residential,omitempty"`
}

// WireLine is one package line item.
type WireLine struct {
	Weight     WireWeight     `json:"weight"`
	Dimensions WireDimensions `json:"dimensions"`
}

// WireWeight is a weight with units.
type WireWeight struct {
	Units string  `json:"units"` // "KG" | "LB"
	Value float64 `json:"value"`
}

// WireDimensions are package dimensions with units.
type WireDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"` // "CM" | "IN"
}

// RateReply is the body of a successful rate call.
type RateReply struct {
	RateDetails []RateDetail `json:"rateReplyDetails"`
	QuoteID     string       `json:"quoteId"`
}

// RateDetail is one FedEx service offer.
type RateDetail struct {
	ServiceType       string  `json:"serviceType"`
	ServiceName       string  `json:"serviceName"`
	BaseCharge        float64 `json:"totalBaseCharge"`
	FuelSurcharge     float64 `json:"totalFuelSurcharge"`
	InsuredCharge     float64 `json:"totalInsuredValueCharge"`
	Taxes             float64 `json:"totalTaxes"`
	NetCharge         float64 `json:"totalNetCharge"`
	Currency          string  `json:"currency"`
	TransitDays       int     `json:"transitDays"`
	DeliveryGuarantee bool    `json:"deliveryGuarantee"`
}

// ShipRequest is the body for POST /ship/v1/shipments.
type ShipRequest struct {
	AccountNumber AccountNumber `json:"accountNumber"`
	Shipment      WireShipment  `json:"requestedShipment"`
	ServiceType   string        `json:"serviceType"`
}

// ShipReply is the body of a successful ship call.
type ShipReply struct {
	TrackingNumber string  `json:"masterTrackingNumber"`
	LabelURL       string  `json:"labelUrl"`
	ServiceType    string  `json:"serviceType"`
	NetCharge      float64 `json:"totalNetCharge"`
	Currency       string  `json:"currency"`
}

// TrackReply is the body of a tracking call.
type TrackReply struct {
	TrackingNumber string      `json:"trackingNumber"`
	ScanEvents     []ScanEvent `json:"scanEvents"`
}

// ScanEvent is one tracking milestone.
type ScanEvent struct {
	Date             string `json:"date"` // RFC3339
	EventType        string `json:"eventType"`
	EventDescription string `json:"eventDescription"`
	City             string `json:"scanLocationCity,omitempty"`
}

// CancelReply is the body of a cancellation call.
type CancelReply struct {
	TrackingNumber   string `json:"trackingNumber"`
	CancelledShipment bool  `json:"cancelledShipment"`
}

// tokenReply is the OAuth token response.
type tokenReply struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// APIError is FedEx's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
