package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/webhook"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/mock"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const testSecret = "whsec_test_0001"

type captureSink struct {
	updates  []*carrier.TrackingUpdate
	failures int
}

func (s *captureSink) HandleTrackingUpdate(ctx context.Context, update *carrier.TrackingUpdate) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.updates = append(s.updates, update)
	return nil
}

func newTestPipeline(t *testing.T, profiles ...*carrier.Profile) (*webhook.Pipeline, *captureSink) {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	registry := carrier.NewRegistry(ratelimit.New(), breaker.New(breaker.DefaultConfig()), logger)

	schema := make(map[string][]string)
	for _, p := range profiles {
		registry.Register(p, func(env carrier.Environment) (carrier.Adapter, error) {
			return mock.New(p.Code), nil
		})
		schema[p.Code] = []string{credentials.TypeWebhookSecret}
	}

	masterKey := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	store, err := credentials.NewStore(masterKey, schema, zap.NewNop())
	require.NoError(t, err)
	for _, p := range profiles {
		_, err := store.Store(p.Code, credentials.TypeWebhookSecret, carrier.Sandbox, testSecret)
		require.NoError(t, err)
	}

	sink := &captureSink{}
	return webhook.NewPipeline(registry, store, sink, logger), sink
}

func signHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestReceive_ValidSignatureDeliversToSink(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`{
		"event_id": "evt-001",
		"tracking_id": "AC123456",
		"status": "IN_TRANSIT",
		"description": "Departed sorting hub",
		"location": "Bogota",
		"occurred_at": "2025-06-01T10:30:00Z"
	}`)

	outcome, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signHex(testSecret, payload))

	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, outcome)
	require.Len(t, sink.updates, 1)

	update := sink.updates[0]
	assert.Equal(t, "acme", update.CarrierCode)
	assert.Equal(t, "evt-001", update.EventID)
	assert.Equal(t, "AC123456", update.TrackingID)
	assert.Equal(t, "IN_TRANSIT", update.Status)
	assert.Equal(t, "Bogota", update.Location)
	assert.Equal(t, 2025, update.OccurredAt.Year())
}

func TestReceive_SignaturePrefixAccepted(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`{"event_id": "evt-002", "tracking_id": "AC1", "status": "DELIVERED"}`)
	signature := "sha256=" + signHex(testSecret, payload)

	outcome, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)

	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, outcome)
	assert.Len(t, sink.updates, 1)
}

func TestReceive_Base64Digest(t *testing.T) {
	profile := mock.Profile("b64")
	profile.Webhook.Digest = carrier.DigestBase64
	pipeline, sink := newTestPipeline(t, profile)

	payload := []byte(`{"event_id": "evt-003", "tracking_id": "B1", "status": "DELIVERED"}`)

	outcome, err := pipeline.Receive(context.Background(), "b64", carrier.Sandbox, payload, signBase64(testSecret, payload))

	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, outcome)
	assert.Len(t, sink.updates, 1)
}

func TestReceive_TamperedPayloadRejected(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`{"event_id": "evt-004", "tracking_id": "AC1", "status": "DELIVERED"}`)
	signature := signHex(testSecret, payload)
	tampered := []byte(`{"event_id": "evt-004", "tracking_id": "AC1", "status": "RETURNED"}`)

	_, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, tampered, signature)

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindSignatureInvalid))
	assert.Empty(t, sink.updates)
}

func TestReceive_WrongSecretRejected(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`{"event_id": "evt-005", "status": "DELIVERED"}`)

	_, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signHex("wrong-secret", payload))

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindSignatureInvalid))
	assert.Empty(t, sink.updates)
}

func TestReceive_MissingSignatureRejected(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	_, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, []byte(`{}`), "")

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindSignatureInvalid))
	assert.Empty(t, sink.updates)
}

func TestReceive_MalformedSignatureEncoding(t *testing.T) {
	pipeline, _ := newTestPipeline(t, mock.Profile("acme"))

	_, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, []byte(`{}`), "zzzz-not-hex")

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindSignatureInvalid))
}

func TestReceive_UnknownCarrier(t *testing.T) {
	pipeline, _ := newTestPipeline(t, mock.Profile("acme"))

	_, err := pipeline.Receive(context.Background(), "ghost", carrier.Sandbox, []byte(`{}`), "aa")

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindUnknownCarrier))
}

func TestReceive_MissingSecret(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	registry := carrier.NewRegistry(ratelimit.New(), breaker.New(breaker.DefaultConfig()), logger)
	registry.Register(mock.Profile("bare"), func(env carrier.Environment) (carrier.Adapter, error) {
		return mock.New("bare"), nil
	})

	masterKey := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	store, err := credentials.NewStore(masterKey, map[string][]string{"bare": {credentials.TypeWebhookSecret}}, zap.NewNop())
	require.NoError(t, err)

	pipeline := webhook.NewPipeline(registry, store, &captureSink{}, logger)

	payload := []byte(`{"event_id": "evt-006"}`)
	_, err = pipeline.Receive(context.Background(), "bare", carrier.Sandbox, payload, signHex(testSecret, payload))

	require.Error(t, err)
	assert.True(t, carrier.IsKind(err, carrier.KindCredentialNotFound))
}

func TestReceive_DuplicateEventSuppressed(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`{"event_id": "evt-007", "tracking_id": "AC1", "status": "DELIVERED"}`)
	signature := signHex(testSecret, payload)

	first, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, first)

	second, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeDuplicate, second)

	assert.Len(t, sink.updates, 1)
}

func TestReceive_SinkFailureLeavesRedeliveryProcessable(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))
	sink.failures = 1

	payload := []byte(`{"event_id": "evt-011", "tracking_id": "AC1", "status": "DELIVERED"}`)
	signature := signHex(testSecret, payload)

	_, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.Error(t, err)
	assert.Empty(t, sink.updates)

	// The carrier redelivers; the failed handoff must not have been recorded
	// as processed.
	outcome, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, outcome)
	assert.Len(t, sink.updates, 1)
}

func TestReceive_SameEventIDDifferentCarriers(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"), mock.Profile("beta"))

	payload := []byte(`{"event_id": "evt-008", "tracking_id": "X1", "status": "DELIVERED"}`)
	signature := signHex(testSecret, payload)

	first, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.NoError(t, err)
	second, err := pipeline.Receive(context.Background(), "beta", carrier.Sandbox, payload, signature)
	require.NoError(t, err)

	assert.Equal(t, webhook.OutcomeAccepted, first)
	assert.Equal(t, webhook.OutcomeAccepted, second)
	assert.Len(t, sink.updates, 2)
}

func TestReceive_NoEventIDFallsBackToPayloadDigest(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`{"tracking_id": "AC9", "status": "IN_TRANSIT"}`)
	signature := signHex(testSecret, payload)

	first, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, first)

	second, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signature)
	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeDuplicate, second)

	assert.Len(t, sink.updates, 1)
}

func TestReceive_CustomDecoder(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))
	pipeline.RegisterDecoder("acme", func(payload []byte) (*carrier.TrackingUpdate, error) {
		return &carrier.TrackingUpdate{
			CarrierCode: "acme",
			EventID:     "decoded-1",
			TrackingID:  "CUSTOM",
			Status:      "DELIVERED",
		}, nil
	})

	payload := []byte(`<xml>anything</xml>`)
	outcome, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signHex(testSecret, payload))

	require.NoError(t, err)
	assert.Equal(t, webhook.OutcomeAccepted, outcome)
	require.Len(t, sink.updates, 1)
	assert.Equal(t, "CUSTOM", sink.updates[0].TrackingID)
}

func TestReceive_UndecodablePayload(t *testing.T) {
	pipeline, sink := newTestPipeline(t, mock.Profile("acme"))

	payload := []byte(`this is not json`)
	_, err := pipeline.Receive(context.Background(), "acme", carrier.Sandbox, payload, signHex(testSecret, payload))

	require.Error(t, err)
	assert.Empty(t, sink.updates)
}
