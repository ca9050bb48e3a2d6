// Package carrier provides the unified abstraction over heterogeneous
// shipping carrier APIs: the capability-polymorphic adapter contract, the
// carrier profile/registry, and the resilience composition (rate limiter and
// circuit breaker) applied to every outbound call.
package carrier

import (
	"context"
)

// Adapter is the base contract every carrier integration implements. The
// operational surface is capability-polymorphic: an adapter additionally
// implements only the narrow interfaces matching its profile's declared
// capabilities.
type Adapter interface {
	// Code returns the carrier identifier (e.g., "dhl", "servientrega").
	Code() string
}

// RateQuoter prices a shipment. The adapter returns its single best offer
// for the request: the rate matching the requested service level when one is
// set, otherwise the cheapest service offered for the route.
type RateQuoter interface {
	Quote(ctx context.Context, req *QuoteRequest) (*Quote, error)
}

// ShipmentCreator books a shipment from a previously obtained quote.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*Shipment, error)
}

// Tracker returns the tracking history for a shipment.
type Tracker interface {
	Track(ctx context.Context, trackingID string) ([]TrackingEvent, error)
}

// Canceller cancels a shipment that has not yet entered transit.
type Canceller interface {
	Cancel(ctx context.Context, trackingID string) error
}

// AddressValidator normalizes an address against the carrier's directory.
type AddressValidator interface {
	ValidateAddress(ctx context.Context, addr Address) (*Address, error)
}
