package carrier

import (
	"context"
	"errors"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ratelimit"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Managed wraps a raw adapter with the per-carrier resilience chain. Every
// operation, in order: acquires a rate limiter permit (failing fast with
// RATE_LIMITED), checks the circuit breaker (failing fast with
// CARRIER_UNAVAILABLE, no network call), issues the upstream request under
// the caller's deadline, then reports the outcome to the breaker. Only
// transport-level failures count against the breaker; see
// CountsAgainstBreaker.
type Managed struct {
	profile *Profile
	adapter Adapter
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	logger  *otelzap.Logger
}

func newManaged(profile *Profile, adapter Adapter, limiter *ratelimit.Limiter, brk *breaker.Breaker, logger *otelzap.Logger) *Managed {
	return &Managed{
		profile: profile,
		adapter: adapter,
		limiter: limiter,
		breaker: brk,
		logger:  logger,
	}
}

// Code returns the carrier identifier.
func (m *Managed) Code() string {
	return m.profile.Code
}

// Profile returns the carrier's immutable profile.
func (m *Managed) Profile() *Profile {
	return m.profile
}

// Quote prices the shipment through the resilience chain.
func (m *Managed) Quote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	quoter, ok := m.adapter.(RateQuoter)
	if !ok {
		return nil, m.notSupported(CapQuote)
	}
	var quote *Quote
	err := m.guarded(ctx, CapQuote, func(ctx context.Context) error {
		var err error
		quote, err = quoter.Quote(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// CreateShipment books a shipment through the resilience chain.
func (m *Managed) CreateShipment(ctx context.Context, req *ShipmentRequest) (*Shipment, error) {
	creator, ok := m.adapter.(ShipmentCreator)
	if !ok {
		return nil, m.notSupported(CapShipment)
	}
	var shipment *Shipment
	err := m.guarded(ctx, CapShipment, func(ctx context.Context) error {
		var err error
		shipment, err = creator.CreateShipment(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// Track fetches tracking history through the resilience chain.
func (m *Managed) Track(ctx context.Context, trackingID string) ([]TrackingEvent, error) {
	tracker, ok := m.adapter.(Tracker)
	if !ok {
		return nil, m.notSupported(CapTracking)
	}
	var events []TrackingEvent
	err := m.guarded(ctx, CapTracking, func(ctx context.Context) error {
		var err error
		events, err = tracker.Track(ctx, trackingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Cancel cancels a shipment through the resilience chain.
func (m *Managed) Cancel(ctx context.Context, trackingID string) error {
	canceller, ok := m.adapter.(Canceller)
	if !ok {
		return m.notSupported(CapShipment)
	}
	return m.guarded(ctx, CapShipment, func(ctx context.Context) error {
		return canceller.Cancel(ctx, trackingID)
	})
}

// ValidateAddress normalizes an address through the resilience chain.
func (m *Managed) ValidateAddress(ctx context.Context, addr Address) (*Address, error) {
	validator, ok := m.adapter.(AddressValidator)
	if !ok {
		return nil, m.notSupported(CapAddressValidate)
	}
	var normalized *Address
	err := m.guarded(ctx, CapAddressValidate, func(ctx context.Context) error {
		var err error
		normalized, err = validator.ValidateAddress(ctx, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func (m *Managed) guarded(ctx context.Context, cap Capability, call func(context.Context) error) error {
	code := m.profile.Code

	if err := m.limiter.Acquire(code, string(cap)); err != nil {
		m.logger.Warn("carrier call throttled",
			zap.String("carrier", code),
			zap.String("capability", string(cap)),
		)
		e := NewError(code, KindRateLimited, "local rate limit exhausted for "+string(cap))
		var limited *ratelimit.ErrLimited
		if errors.As(err, &limited) {
			e = e.WithRetryAfter(limited.RetryAfter)
		}
		return e
	}

	if err := m.breaker.Allow(code); err != nil {
		var open *breaker.ErrOpen
		errors.As(err, &open)
		e := NewError(code, KindUnavailable, "circuit open, failing fast")
		if open != nil {
			e = e.WithRetryAfter(open.RetryAfter)
		}
		return e
	}

	err := call(ctx)
	if err == nil {
		m.breaker.RecordSuccess(code)
		return nil
	}

	err = m.normalize(err)
	if CountsAgainstBreaker(err) {
		m.breaker.RecordFailure(code)
	} else {
		// Request-level rejections prove the carrier is reachable.
		m.breaker.RecordSuccess(code)
	}

	m.logger.Warn("carrier call failed",
		zap.String("carrier", code),
		zap.String("capability", string(cap)),
		zap.String("kind", string(KindOf(err))),
		zap.Error(err),
	)
	return err
}

// normalize guarantees the error leaving the managed layer is a carrier
// error. Adapters already map their upstream shapes; this catches context
// deadline errors surfacing from the transport.
func (m *Managed) normalize(err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return NewError(m.profile.Code, KindOf(err), "upstream call failed").WithCause(err)
}

func (m *Managed) notSupported(cap Capability) *Error {
	return NewError(m.profile.Code, KindNotSupported,
		string(cap)+" is not declared by this carrier")
}
