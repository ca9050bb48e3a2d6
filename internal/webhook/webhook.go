// Package webhook ingests carrier tracking callbacks: signature
// verification, payload decoding, and idempotent delivery to the
// tracking sink.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultWindow is how long delivered event IDs are remembered for
// duplicate suppression.
const DefaultWindow = 24 * time.Hour

// Outcome says what the pipeline did with a delivery.
type Outcome string

const (
	// OutcomeAccepted means the update was verified, decoded, and handed
	// to the sink.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeDuplicate means the event was already delivered inside the
	// window; the sink was not called again.
	OutcomeDuplicate Outcome = "duplicate"
)

// TrackingSink receives verified, deduplicated tracking updates.
type TrackingSink interface {
	HandleTrackingUpdate(ctx context.Context, update *carrier.TrackingUpdate) error
}

// Decoder turns one carrier's raw webhook payload into a normalized update.
type Decoder func(payload []byte) (*carrier.TrackingUpdate, error)

// Pipeline verifies and routes inbound carrier webhooks.
type Pipeline struct {
	registry *carrier.Registry
	store    *credentials.Store
	sink     TrackingSink
	decoders map[string]Decoder
	seen     *recorder
	logger   *otelzap.Logger
}

// NewPipeline creates a webhook pipeline. Carriers without a registered
// decoder fall back to the generic JSON envelope.
func NewPipeline(registry *carrier.Registry, store *credentials.Store, sink TrackingSink, logger *otelzap.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		store:    store,
		sink:     sink,
		decoders: make(map[string]Decoder),
		seen:     newRecorder(DefaultWindow),
		logger:   logger,
	}
}

// RegisterDecoder installs a carrier-specific payload decoder.
func (p *Pipeline) RegisterDecoder(carrierCode string, dec Decoder) {
	p.decoders[carrierCode] = dec
}

// Receive processes one webhook delivery. The signature is verified against
// the carrier's webhook secret before the payload is parsed at all; a
// failed check returns a SIGNATURE_INVALID error and nothing is delivered.
// Redelivered events inside the window return OutcomeDuplicate without a
// second sink call.
func (p *Pipeline) Receive(ctx context.Context, carrierCode string, env carrier.Environment, payload []byte, signature string) (Outcome, error) {
	profile, err := p.registry.Profile(carrierCode)
	if err != nil {
		return "", err
	}

	secret, err := p.store.Resolve(carrierCode, credentials.TypeWebhookSecret, env)
	if err != nil {
		return "", err
	}

	if err := verifySignature(profile, carrierCode, secret, payload, signature); err != nil {
		return "", err
	}

	decode := p.decoders[carrierCode]
	if decode == nil {
		decode = genericDecoder(carrierCode)
	}
	update, err := decode(payload)
	if err != nil {
		return "", fmt.Errorf("decoding %s webhook: %w", carrierCode, err)
	}

	key := eventKey(carrierCode, update.EventID, payload)
	if p.seen.duplicate(key) {
		p.logger.Ctx(ctx).Debug("duplicate webhook suppressed",
			zap.String("carrier", carrierCode),
			zap.String("event_id", update.EventID),
		)
		return OutcomeDuplicate, nil
	}

	if err := p.sink.HandleTrackingUpdate(ctx, update); err != nil {
		return "", fmt.Errorf("delivering %s tracking update: %w", carrierCode, err)
	}
	// Recorded only after the sink accepts, so a failed handoff leaves the
	// carrier's redelivery processable.
	p.seen.record(key)

	p.logger.Ctx(ctx).Info("tracking update delivered",
		zap.String("carrier", carrierCode),
		zap.String("tracking_id", update.TrackingID),
		zap.String("status", update.Status),
	)
	return OutcomeAccepted, nil
}

// verifySignature checks the HMAC-SHA256 of the raw payload in constant
// time, honoring the carrier's declared digest encoding.
func verifySignature(profile *carrier.Profile, carrierCode, secret string, payload []byte, signature string) error {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return carrier.NewError(carrierCode, carrier.KindSignatureInvalid, "missing signature header")
	}

	var provided []byte
	var err error
	switch profile.Webhook.Digest {
	case carrier.DigestBase64:
		provided, err = base64.StdEncoding.DecodeString(signature)
	default:
		provided, err = hex.DecodeString(signature)
	}
	if err != nil {
		return carrier.NewError(carrierCode, carrier.KindSignatureInvalid, "malformed signature encoding")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return carrier.NewError(carrierCode, carrier.KindSignatureInvalid, "signature mismatch")
	}
	return nil
}

// genericDecoder parses the flat envelope used by carriers without a
// bespoke webhook format.
func genericDecoder(carrierCode string) Decoder {
	return func(payload []byte) (*carrier.TrackingUpdate, error) {
		var env struct {
			EventID     string `json:"event_id"`
			TrackingID  string `json:"tracking_id"`
			Status      string `json:"status"`
			Description string `json:"description"`
			Location    string `json:"location"`
			OccurredAt  string `json:"occurred_at"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, err
		}
		occurred, _ := time.Parse(time.RFC3339, env.OccurredAt)
		return &carrier.TrackingUpdate{
			CarrierCode: carrierCode,
			EventID:     env.EventID,
			TrackingID:  env.TrackingID,
			Status:      env.Status,
			Description: env.Description,
			Location:    env.Location,
			OccurredAt:  occurred,
		}, nil
	}
}

// eventKey prefers the carrier's event ID; payload digest is the fallback
// for carriers that do not send one.
func eventKey(carrierCode, eventID string, payload []byte) string {
	if eventID != "" {
		return carrierCode + "/" + eventID
	}
	sum := sha256.Sum256(payload)
	return carrierCode + "/" + hex.EncodeToString(sum[:])
}
