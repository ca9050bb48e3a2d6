package carrier

import (
	"time"
)

// Environment selects the carrier account a call runs against.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// ServiceLevel is the normalized service tier across carriers.
type ServiceLevel string

const (
	ServiceStandard ServiceLevel = "standard"
	ServiceExpress  ServiceLevel = "express"
	ServicePriority ServiceLevel = "priority"
	ServiceEconomy  ServiceLevel = "economy"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// Address represents a shipping address.
type Address struct {
	Name          string `json:"name,omitempty"`
	Company       string `json:"company,omitempty"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	ProvinceCode  string `json:"province_code,omitempty"` // e.g., "CDMX", "ANT", "FL"
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"` // ISO 3166-1 alpha-2, e.g., "MX", "CO", "US"
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	IsResidential bool   `json:"is_residential,omitempty"`
}

// Package represents a package to be shipped.
type Package struct {
	Length        float64       `json:"length"`
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	DimensionUnit DimensionUnit `json:"dimension_unit,omitempty"`
	Weight        float64       `json:"weight"`
	WeightUnit    WeightUnit    `json:"weight_unit,omitempty"`
	DeclaredValue float64       `json:"declared_value,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	Description   string        `json:"description,omitempty"`
}

// Money represents a monetary amount.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CostBreakdown itemizes a quote total. Total is authoritative; the
// components are informational and come straight from the carrier.
type CostBreakdown struct {
	Base          Money `json:"base"`
	FuelSurcharge Money `json:"fuel_surcharge"`
	Insurance     Money `json:"insurance"`
	Taxes         Money `json:"taxes"`
	Total         Money `json:"total"`
}

// QuoteRequest describes one shipment to be priced. It is an immutable value
// that lives for the duration of a single quotation call.
type QuoteRequest struct {
	Origin      Address   `json:"origin"`
	Destination Address   `json:"destination"`
	Packages    []Package `json:"packages"`

	// Carriers restricts the quotation to the listed codes. Empty means all
	// eligible carriers.
	Carriers []string `json:"carriers,omitempty"`

	// ServiceLevel restricts quotes to one service tier. Empty means the
	// adapter picks its best offer for the route.
	ServiceLevel ServiceLevel `json:"service_level,omitempty"`

	// Timeout overrides the engine's default deadline when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// TotalWeight returns the summed package weight in the unit of the first
// package (adapters convert per their upstream contract).
func (r *QuoteRequest) TotalWeight() float64 {
	var total float64
	for _, p := range r.Packages {
		total += p.Weight
	}
	return total
}

// Quote is one carrier's priced, timed offer for a request. Immutable once
// produced by an adapter.
type Quote struct {
	CarrierCode  string        `json:"carrier_code"`
	ServiceLevel ServiceLevel  `json:"service_level"`
	ServiceName  string        `json:"service_name"`
	Cost         CostBreakdown `json:"cost"`
	TransitDays  int           `json:"transit_days"`

	// Confidence is the carrier's reliability estimate in [0,1], distinct
	// from price or speed. Guaranteed services score higher.
	Confidence float64 `json:"confidence"`

	// UpstreamRef is the carrier-native quote/rate identifier, kept for audit.
	UpstreamRef string `json:"upstream_ref,omitempty"`
}

// ShipmentRequest creates a shipment from a previously quoted offer.
type ShipmentRequest struct {
	Quote       *Quote    `json:"quote"`
	Origin      Address   `json:"origin"`
	Destination Address   `json:"destination"`
	Packages    []Package `json:"packages"`
	Reference   string    `json:"reference,omitempty"`
}

// Shipment is the result of creating a shipment with a carrier.
type Shipment struct {
	CarrierCode    string       `json:"carrier_code"`
	TrackingID     string       `json:"tracking_id"`
	LabelReference string       `json:"label_reference,omitempty"`
	ServiceLevel   ServiceLevel `json:"service_level"`
	TotalCharged   Money        `json:"total_charged"`
}

// TrackingEvent is a normalized tracking milestone.
type TrackingEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// TrackingUpdate is a normalized inbound webhook event handed to the
// tracking collaborator.
type TrackingUpdate struct {
	CarrierCode string    `json:"carrier_code"`
	EventID     string    `json:"event_id"`
	TrackingID  string    `json:"tracking_id"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
