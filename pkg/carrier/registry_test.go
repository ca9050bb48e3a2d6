package carrier_test

import (
	"context"
	"testing"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/mock"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestRegistry() *carrier.Registry {
	logger := otelzap.New(zap.NewNop())
	return carrier.NewRegistry(ratelimit.New(), breaker.New(breaker.DefaultConfig()), logger)
}

func registerMock(r *carrier.Registry, profile *carrier.Profile, adapter carrier.Adapter) {
	r.Register(profile, func(env carrier.Environment) (carrier.Adapter, error) {
		return adapter, nil
	})
}

func TestRegistry_ResolveUnknownCarrier(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.Resolve("nonexistent", carrier.Sandbox)

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindUnknownCarrier))
}

func TestRegistry_ResolveCachesPerEnvironment(t *testing.T) {
	registry := newTestRegistry()
	registerMock(registry, mock.Profile("acme"), mock.New("acme"))

	first, err := registry.Resolve("acme", carrier.Sandbox)
	require.NoError(t, err)
	second, err := registry.Resolve("acme", carrier.Sandbox)
	require.NoError(t, err)
	prod, err := registry.Resolve("acme", carrier.Production)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotSame(t, first, prod)
}

func TestRegistry_BuilderErrorPropagates(t *testing.T) {
	registry := newTestRegistry()
	registry.Register(mock.Profile("acme"), func(env carrier.Environment) (carrier.Adapter, error) {
		return nil, carrier.NewError("acme", carrier.KindCredentialNotFound, "no active api_key")
	})

	_, err := registry.Resolve("acme", carrier.Production)

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindCredentialNotFound))
}

func TestRegistry_Eligible(t *testing.T) {
	registry := newTestRegistry()

	worldwide := mock.Profile("global")
	registerMock(registry, worldwide, mock.New("global"))

	domestic := mock.Profile("local")
	domestic.Coverage = []string{"CO"}
	registerMock(registry, domestic, mock.New("local"))

	quoteOnly := mock.Profile("narrow")
	quoteOnly.Capabilities = carrier.Capabilities{carrier.CapQuote}
	registerMock(registry, quoteOnly, mock.New("narrow"))

	assert.ElementsMatch(t, []string{"global", "local", "narrow"},
		registry.Eligible(carrier.CapQuote, "CO", nil))
	assert.ElementsMatch(t, []string{"global", "narrow"},
		registry.Eligible(carrier.CapQuote, "MX", nil))
	assert.ElementsMatch(t, []string{"global", "local"},
		registry.Eligible(carrier.CapShipment, "CO", nil))
	assert.ElementsMatch(t, []string{"local"},
		registry.Eligible(carrier.CapQuote, "CO", []string{"local"}))
}

func TestManaged_UndeclaredCapability(t *testing.T) {
	registry := newTestRegistry()
	profile := mock.Profile("acme")
	profile.Capabilities = carrier.Capabilities{carrier.CapQuote}
	registerMock(registry, profile, mock.New("acme"))

	managed, err := registry.Resolve("acme", carrier.Sandbox)
	require.NoError(t, err)

	_, err = managed.ValidateAddress(context.Background(), carrier.Address{})

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindNotSupported))
}

func TestManaged_BreakerTripsOnTransportFailures(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	brk := breaker.New(breaker.Config{FailureThreshold: 3})
	registry := carrier.NewRegistry(ratelimit.New(), brk, logger)

	adapter := mock.New("flaky")
	adapter.Err = carrier.NewError("flaky", carrier.KindUpstream, "500 from gateway")
	registerMock(registry, mock.Profile("flaky"), adapter)

	managed, err := registry.Resolve("flaky", carrier.Sandbox)
	require.NoError(t, err)

	ctx := context.Background()
	req := &carrier.QuoteRequest{Packages: []carrier.Package{{Weight: 1}}}

	for i := 0; i < 3; i++ {
		_, err := managed.Quote(ctx, req)
		require.Error(t, err)
	}

	// Circuit is now open: the next call fails fast without reaching the
	// adapter.
	adapter.Err = nil
	_, err = managed.Quote(ctx, req)
	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindUnavailable))

	health := registry.Health()
	require.Len(t, health, 1)
	assert.Equal(t, breaker.Open, health[0].State)
}

func TestManaged_RequestRejectionsDoNotTrip(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	brk := breaker.New(breaker.Config{FailureThreshold: 2})
	registry := carrier.NewRegistry(ratelimit.New(), brk, logger)

	adapter := mock.New("strict")
	adapter.Err = carrier.NewError("strict", carrier.KindInvalidAddress, "postal code unknown")
	registerMock(registry, mock.Profile("strict"), adapter)

	managed, err := registry.Resolve("strict", carrier.Sandbox)
	require.NoError(t, err)

	ctx := context.Background()
	req := &carrier.QuoteRequest{Packages: []carrier.Package{{Weight: 1}}}
	for i := 0; i < 5; i++ {
		_, err := managed.Quote(ctx, req)
		require.Error(t, err)
		assert.True(t, carrier.IsKind(err, carrier.KindInvalidAddress))
	}

	assert.Equal(t, breaker.Closed, brk.Snapshot("strict").State)
}

func TestManaged_RateLimitedFailsFast(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	limiter := ratelimit.New()
	registry := carrier.NewRegistry(limiter, breaker.New(breaker.DefaultConfig()), logger)

	profile := mock.Profile("slowpoke")
	profile.DefaultRateLimit = carrier.RatePolicy{CallsPerSecond: 1, Burst: 2}
	registerMock(registry, profile, mock.New("slowpoke"))

	managed, err := registry.Resolve("slowpoke", carrier.Sandbox)
	require.NoError(t, err)

	ctx := context.Background()
	req := &carrier.QuoteRequest{Packages: []carrier.Package{{Weight: 1}}}

	for i := 0; i < 2; i++ {
		_, err := managed.Quote(ctx, req)
		require.NoError(t, err)
	}

	_, err = managed.Quote(ctx, req)
	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindRateLimited))

	var ce *carrier.Error
	require.ErrorAs(t, err, &ce)
	assert.Greater(t, ce.RetryAfter, time.Duration(0))
}
