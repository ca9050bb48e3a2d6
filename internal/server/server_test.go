package server_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/server"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/telemetry"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/webhook"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/mock"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/ratelimit"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_server_test"

// Prometheus collectors register globally, so the whole test binary shares
// one Metrics instance.
var testMetrics = telemetry.NewMetrics()

type discardSink struct{}

func (discardSink) HandleTrackingUpdate(ctx context.Context, update *carrier.TrackingUpdate) error {
	return nil
}

func newTestHandler(t *testing.T, adapters map[string]*mock.Client) http.Handler {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	registry := carrier.NewRegistry(ratelimit.New(), breaker.New(breaker.DefaultConfig()), logger)

	schema := make(map[string][]string)
	for code, adapter := range adapters {
		registry.Register(mock.Profile(code), func(env carrier.Environment) (carrier.Adapter, error) {
			return adapter, nil
		})
		schema[code] = []string{credentials.TypeAPIKey, credentials.TypeWebhookSecret}
	}

	masterKey := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	store, err := credentials.NewStore(masterKey, schema, zap.NewNop())
	require.NoError(t, err)
	for code := range adapters {
		_, err := store.Store(code, credentials.TypeWebhookSecret, carrier.Sandbox, webhookSecret)
		require.NoError(t, err)
	}

	engine := quote.NewEngine(registry, logger)
	pipeline := webhook.NewPipeline(registry, store, discardSink{}, logger)

	srv := server.New(server.Config{Port: 8080, Environment: carrier.Sandbox},
		registry, engine, store, pipeline, testMetrics, logger)
	return srv.Handler()
}

func defaultAdapters() map[string]*mock.Client {
	alpha := mock.New("alpha")
	alpha.QuoteResult = &carrier.Quote{
		ServiceLevel: carrier.ServiceStandard,
		Cost:         carrier.CostBreakdown{Total: carrier.Money{Amount: 45.00, Currency: "USD"}},
		TransitDays:  3,
		Confidence:   0.92,
	}
	beta := mock.New("beta")
	beta.QuoteResult = &carrier.Quote{
		ServiceLevel: carrier.ServiceEconomy,
		Cost:         carrier.CostBreakdown{Total: carrier.Money{Amount: 38.00, Currency: "USD"}},
		TransitDays:  5,
		Confidence:   0.85,
	}
	return map[string]*mock.Client{"alpha": alpha, "beta": beta}
}

const validQuoteBody = `{
	"origin": {"line1": "Calle 100", "city": "Bogota", "postal_code": "110111", "country_code": "CO"},
	"destination": {"line1": "Carrera 43", "city": "Medellin", "postal_code": "050001", "country_code": "CO"},
	"packages": [{"length": 30, "width": 20, "height": 10, "weight": 2.5}]
}`

func TestServer_Health(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Quotes(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/quotes", strings.NewReader(validQuoteBody)))

	require.Equal(t, http.StatusOK, rec.Code)

	var res quote.ComparisonResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Quotes, 2)
	assert.Equal(t, "beta", res.Quotes[0].CarrierCode)
	assert.Equal(t, "beta", res.Cheapest.CarrierCode)
	assert.Equal(t, "alpha", res.Fastest.CarrierCode)
	assert.NotEmpty(t, res.RequestID)
}

func TestServer_QuotesValidation(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	cases := map[string]string{
		"malformed json":    `{"origin": `,
		"missing countries": `{"origin": {}, "destination": {}, "packages": [{"weight": 1}]}`,
		"no packages":       `{"origin": {"country_code": "CO"}, "destination": {"country_code": "CO"}, "packages": []}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/quotes", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_QuotesNoEligibleCarriers(t *testing.T) {
	handler := newTestHandler(t, map[string]*mock.Client{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/quotes", strings.NewReader(validQuoteBody)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_QuotesAllCarriersFail(t *testing.T) {
	broken := mock.New("broken")
	broken.Err = carrier.NewError("broken", carrier.KindUpstream, "503 from gateway")
	handler := newTestHandler(t, map[string]*mock.Client{"broken": broken})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/quotes", strings.NewReader(validQuoteBody)))

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var res quote.ComparisonResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Quotes)
	require.Contains(t, res.Errors, "broken")
	assert.Equal(t, carrier.KindUpstream, res.Errors["broken"].Kind)
}

func TestServer_CarrierHealth(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/carriers/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Carriers []breaker.Snapshot `json:"carriers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Carriers, 2)
	for _, snap := range body.Carriers {
		assert.Equal(t, breaker.Closed, snap.State)
	}
}

func TestServer_StoreAndRotateCredential(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	body := `{"carrier": "alpha", "type": "api_key", "value": "sk-first"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var ref credentials.Ref
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ref))
	assert.Equal(t, 1, ref.Version)
	assert.Equal(t, carrier.Sandbox, ref.Environment)

	// A second store for the same tuple conflicts.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rotate := `{"carrier": "alpha", "type": "api_key", "value": "sk-second"}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials/rotate", strings.NewReader(rotate)))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ref))
	assert.Equal(t, 2, ref.Version)
}

func TestServer_CredentialValidation(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials",
		strings.NewReader(`{"carrier": "alpha"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Rotating a tuple that was never stored fails.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials/rotate",
		strings.NewReader(`{"carrier": "alpha", "type": "api_key", "value": "sk"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CredentialStatusHidesValues(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	const secret = "sk-very-secret"
	body := `{"carrier": "alpha", "type": "api_key", "value": "` + secret + `"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/credentials/status?carrier=alpha", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, rec.Body.String(), secret)

	var status struct {
		Credentials []credentials.Status `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.NotEmpty(t, status.Credentials)
	for _, s := range status.Credentials {
		assert.Equal(t, "alpha", s.Carrier)
	}
}

func webhookRequest(carrierCode string, payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+carrierCode, bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Mock-Signature", signature)
	}
	return req
}

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestServer_WebhookAccepted(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	payload := []byte(`{"event_id": "evt-100", "tracking_id": "AL1", "status": "DELIVERED"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest("alpha", payload, signPayload(payload)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status": "accepted"}`, rec.Body.String())

	// Redelivery is acknowledged as a duplicate, still 202.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest("alpha", payload, signPayload(payload)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status": "duplicate"}`, rec.Body.String())
}

func TestServer_WebhookBadSignature(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	payload := []byte(`{"event_id": "evt-101", "status": "DELIVERED"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest("alpha", payload, strings.Repeat("ab", 32)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_WebhookMissingSignature(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest("alpha", []byte(`{}`), ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_WebhookUnknownCarrier(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, webhookRequest("ghost", []byte(`{}`), "aa"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	handler := newTestHandler(t, defaultAdapters())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
