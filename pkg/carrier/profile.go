package carrier

// Capability names one operation a carrier declares support for. The
// registry routes a request to a carrier only if its profile declares the
// matching capability.
type Capability string

const (
	CapQuote           Capability = "rate_quoting"
	CapShipment        Capability = "label_generation"
	CapTracking        Capability = "tracking"
	CapPickup          Capability = "pickup_scheduling"
	CapAddressValidate Capability = "address_validation"
)

// Capabilities is the set of operations a carrier supports.
type Capabilities []Capability

// Has reports whether the set declares the capability.
func (c Capabilities) Has(cap Capability) bool {
	for _, x := range c {
		if x == cap {
			return true
		}
	}
	return false
}

// RatePolicy is the provider-specific call budget for a carrier.
type RatePolicy struct {
	CallsPerSecond float64
	Burst          int
}

// TransitModel is the carrier's declared transit-time envelope in days.
type TransitModel struct {
	MinDays int
	MaxDays int
}

// DigestEncoding selects how a carrier encodes its webhook HMAC digest.
type DigestEncoding string

const (
	DigestHex    DigestEncoding = "hex"
	DigestBase64 DigestEncoding = "base64"
)

// WebhookSpec declares a carrier's webhook signing scheme.
type WebhookSpec struct {
	// SignatureHeader is the HTTP header carrying the HMAC digest.
	SignatureHeader string
	// Digest is the encoding of the HMAC-SHA256 digest.
	Digest DigestEncoding
}

// Profile is the immutable identity and configuration of a provider, loaded
// at startup. The capability set governs routing; the rate policies feed the
// per-carrier token buckets.
type Profile struct {
	Code         string
	Name         string
	Capabilities Capabilities

	// RateLimits maps capabilities to their call budget. DefaultRateLimit
	// applies to capabilities without an entry.
	RateLimits       map[Capability]RatePolicy
	DefaultRateLimit RatePolicy

	// Coverage lists served destination countries (ISO alpha-2). Empty
	// means worldwide.
	Coverage []string

	Transit TransitModel
	Webhook WebhookSpec

	// CredentialTypes enumerates exactly the credential fields this carrier
	// recognizes; the credential store validates against this list at store
	// time, not at call time.
	CredentialTypes []string
}

// RateLimit returns the call budget for a capability.
func (p *Profile) RateLimit(cap Capability) RatePolicy {
	if policy, ok := p.RateLimits[cap]; ok {
		return policy
	}
	return p.DefaultRateLimit
}

// Covers reports whether the carrier serves the destination country.
func (p *Profile) Covers(countryCode string) bool {
	if len(p.Coverage) == 0 {
		return true
	}
	for _, c := range p.Coverage {
		if c == countryCode {
			return true
		}
	}
	return false
}
