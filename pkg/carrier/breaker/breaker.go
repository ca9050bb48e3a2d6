// Package breaker short-circuits calls to carriers experiencing sustained
// failures. Each carrier has an independent state machine; transitions are
// serialized per carrier so concurrent callers never observe a torn state.
package breaker

import (
	"fmt"
	"sync"
	"time"
)

// State is the circuit mode for one carrier.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Config tunes trip thresholds and cooldowns.
type Config struct {
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker from CLOSED to OPEN.
	FailureThreshold int
	// Cooldown is the initial OPEN window. It doubles on every failed probe
	// up to MaxCooldown.
	Cooldown    time.Duration
	MaxCooldown time.Duration
}

// DefaultConfig matches the operational defaults: trip after 5 consecutive
// failures, 60s cooldown doubling up to 10 minutes.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
		MaxCooldown:      10 * time.Minute,
	}
}

// Snapshot is a read-only view of one carrier's circuit, for the health
// endpoint and the breaker state gauge.
type Snapshot struct {
	Carrier             string    `json:"carrier"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at,omitzero"`
	OpenUntil           time.Time `json:"open_until,omitzero"`
}

type circuit struct {
	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	openUntil     time.Time
	cooldown      time.Duration
	probeInFlight bool
}

// Breaker tracks circuits for all carriers. Circuit records are created
// lazily on first use and live for the process lifetime.
type Breaker struct {
	cfg Config

	mu       sync.RWMutex
	circuits map[string]*circuit

	now func() time.Time // overridable in tests
}

// New creates a breaker with the given config. Zero fields fall back to
// DefaultConfig values.
func New(cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.MaxCooldown <= 0 {
		cfg.MaxCooldown = def.MaxCooldown
	}
	return &Breaker{
		cfg:      cfg,
		circuits: make(map[string]*circuit),
		now:      time.Now,
	}
}

// ErrOpen is returned by Allow while a carrier's circuit is open.
type ErrOpen struct {
	Carrier    string
	RetryAfter time.Duration
}

func (e *ErrOpen) Error() string {
	return fmt.Sprintf("circuit open for %s, retry in %s", e.Carrier, e.RetryAfter)
}

// Allow reports whether a call to the carrier may proceed. While OPEN it
// fails fast until the cooldown elapses; the first call after that is
// admitted as the single HALF_OPEN probe.
func (b *Breaker) Allow(carrierCode string) error {
	c := b.circuit(carrierCode)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := b.now()
	switch c.state {
	case Closed:
		return nil
	case Open:
		if now.Before(c.openUntil) {
			return &ErrOpen{Carrier: carrierCode, RetryAfter: c.openUntil.Sub(now)}
		}
		// Cooldown elapsed: admit exactly one probe.
		c.state = HalfOpen
		c.probeInFlight = true
		return nil
	case HalfOpen:
		if c.probeInFlight {
			return &ErrOpen{Carrier: carrierCode, RetryAfter: 0}
		}
		c.probeInFlight = true
		return nil
	}
	return nil
}

// RecordSuccess resets the circuit after a successful call. A successful
// HALF_OPEN probe closes the circuit and resets the cooldown ladder.
func (b *Breaker) RecordSuccess(carrierCode string) {
	c := b.circuit(carrierCode)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = 0
	c.probeInFlight = false
	c.state = Closed
	c.cooldown = b.cfg.Cooldown
	c.openUntil = time.Time{}
}

// RecordFailure counts one failure. Reaching the threshold while CLOSED
// trips the circuit; a failed HALF_OPEN probe reopens it with a doubled,
// capped cooldown.
func (b *Breaker) RecordFailure(carrierCode string) {
	c := b.circuit(carrierCode)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := b.now()
	c.failures++
	c.lastFailure = now

	switch c.state {
	case Closed:
		if c.failures >= b.cfg.FailureThreshold {
			c.state = Open
			c.cooldown = b.cfg.Cooldown
			c.openUntil = now.Add(c.cooldown)
		}
	case HalfOpen:
		c.probeInFlight = false
		c.state = Open
		next := c.cooldown * 2
		if next > b.cfg.MaxCooldown {
			next = b.cfg.MaxCooldown
		}
		c.cooldown = next
		c.openUntil = now.Add(c.cooldown)
	case Open:
		// Late failure from a call issued before the trip; keep the window.
	}
}

// Snapshot returns the current circuit state for one carrier.
func (b *Breaker) Snapshot(carrierCode string) Snapshot {
	c := b.circuit(carrierCode)
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Carrier:             carrierCode,
		State:               c.state,
		ConsecutiveFailures: c.failures,
		LastFailureAt:       c.lastFailure,
		OpenUntil:           c.openUntil,
	}
}

// Snapshots returns the state of every circuit created so far.
func (b *Breaker) Snapshots() []Snapshot {
	b.mu.RLock()
	codes := make([]string, 0, len(b.circuits))
	for code := range b.circuits {
		codes = append(codes, code)
	}
	b.mu.RUnlock()

	out := make([]Snapshot, 0, len(codes))
	for _, code := range codes {
		out = append(out, b.Snapshot(code))
	}
	return out
}

func (b *Breaker) circuit(code string) *circuit {
	b.mu.RLock()
	c, ok := b.circuits[code]
	b.mu.RUnlock()
	if ok {
		return c
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok = b.circuits[code]; ok {
		return c
	}
	c = &circuit{state: Closed, cooldown: b.cfg.Cooldown}
	b.circuits[code] = c
	return c
}
