package carrier

import (
	"fmt"
	"sync"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ratelimit"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// Builder constructs the raw adapter for one environment, typically by
// resolving credentials from the credential store. Builders fail with a
// CREDENTIAL_NOT_FOUND error when no active credential exists.
type Builder func(env Environment) (Adapter, error)

type registration struct {
	profile *Profile
	builder Builder
}

// Registry owns adapter lifetime. It resolves a carrier code and environment
// to a managed adapter (limiter and breaker composed in), caching the
// constructed instance per (carrier, environment). The limiter buckets and
// breaker circuits are long-lived and shared across environments of the same
// carrier, since the provider's call budget is account-wide.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registration
	cache   map[string]*Managed

	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	logger  *otelzap.Logger
}

// NewRegistry creates a registry wiring the given resilience components into
// every adapter it builds.
func NewRegistry(limiter *ratelimit.Limiter, brk *breaker.Breaker, logger *otelzap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*registration),
		cache:   make(map[string]*Managed),
		limiter: limiter,
		breaker: brk,
		logger:  logger,
	}
}

// Register adds a carrier profile with its adapter builder and configures
// the carrier's rate buckets. Registering an existing code replaces it and
// drops cached adapters for that code.
func (r *Registry) Register(profile *Profile, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[profile.Code] = &registration{profile: profile, builder: builder}
	r.limiter.Configure(profile.Code, ratePolicies(profile))
	for key := range r.cache {
		if cacheCarrier(key) == profile.Code {
			delete(r.cache, key)
		}
	}
}

// Resolve returns the managed adapter for (carrier, environment), building
// it on first use. It fails with UNKNOWN_CARRIER for unregistered codes and
// propagates builder errors such as CREDENTIAL_NOT_FOUND.
func (r *Registry) Resolve(code string, env Environment) (*Managed, error) {
	key := cacheKey(code, env)

	r.mu.RLock()
	if m, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	reg, ok := r.entries[code]
	r.mu.RUnlock()

	if !ok {
		return nil, NewError(code, KindUnknownCarrier, "no registered profile")
	}

	adapter, err := reg.builder(env)
	if err != nil {
		return nil, err
	}

	m := newManaged(reg.profile, adapter, r.limiter, r.breaker, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have built it while we did; keep the first.
	if existing, ok := r.cache[key]; ok {
		return existing, nil
	}
	r.cache[key] = m
	return m, nil
}

// Profile returns the registered profile for a code.
func (r *Registry) Profile(code string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[code]
	if !ok {
		return nil, NewError(code, KindUnknownCarrier, "no registered profile")
	}
	return reg.profile, nil
}

// Profiles returns all registered profiles.
func (r *Registry) Profiles() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg.profile)
	}
	return out
}

// Eligible returns the codes of carriers that declare the capability, cover
// the destination country, and pass the optional filter.
func (r *Registry) Eligible(cap Capability, destinationCountry string, filter []string) []string {
	allowed := make(map[string]bool, len(filter))
	for _, code := range filter {
		allowed[code] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for code, reg := range r.entries {
		if len(filter) > 0 && !allowed[code] {
			continue
		}
		if !reg.profile.Capabilities.Has(cap) {
			continue
		}
		if !reg.profile.Covers(destinationCountry) {
			continue
		}
		out = append(out, code)
	}
	return out
}

// Health returns the circuit snapshot for every registered carrier.
func (r *Registry) Health() []breaker.Snapshot {
	r.mu.RLock()
	codes := make([]string, 0, len(r.entries))
	for code := range r.entries {
		codes = append(codes, code)
	}
	r.mu.RUnlock()

	out := make([]breaker.Snapshot, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.breaker.Snapshot(code))
	}
	return out
}

// ratePolicies flattens a profile's call budgets into the limiter's
// capability-keyed config shape.
func ratePolicies(p *Profile) map[string]ratelimit.Policy {
	out := make(map[string]ratelimit.Policy, len(p.Capabilities))
	for _, cap := range p.Capabilities {
		policy := p.RateLimit(cap)
		out[string(cap)] = ratelimit.Policy{
			CallsPerSecond: policy.CallsPerSecond,
			Burst:          policy.Burst,
		}
	}
	return out
}

func cacheKey(code string, env Environment) string {
	return fmt.Sprintf("%s@%s", code, env)
}

func cacheCarrier(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '@' {
			return key[:i]
		}
	}
	return key
}
