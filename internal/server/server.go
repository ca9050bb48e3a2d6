// Package server exposes the carrier integration layer over HTTP: quote
// comparison, carrier health, credential administration, and webhook
// ingestion.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/credentials"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/telemetry"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/webhook"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier/breaker"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/quote"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// Server is the HTTP server for the carrier integration service.
type Server struct {
	port     int
	env      carrier.Environment
	registry *carrier.Registry
	engine   *quote.Engine
	store    *credentials.Store
	pipeline *webhook.Pipeline
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port        int
	Environment carrier.Environment
}

// New creates a new server instance.
func New(cfg Config, registry *carrier.Registry, engine *quote.Engine, store *credentials.Store, pipeline *webhook.Pipeline, metrics *telemetry.Metrics, logger *otelzap.Logger) *Server {
	return &Server{
		port:     cfg.Port,
		env:      cfg.Environment,
		registry: registry,
		engine:   engine,
		store:    store,
		pipeline: pipeline,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/quotes", s.handleQuotes)
	mux.HandleFunc("GET /v1/carriers/health", s.handleCarrierHealth)

	mux.HandleFunc("POST /v1/credentials", s.handleStoreCredential)
	mux.HandleFunc("POST /v1/credentials/rotate", s.handleRotateCredential)
	mux.HandleFunc("GET /v1/credentials/status", s.handleCredentialStatus)

	mux.HandleFunc("POST /webhooks/{carrier}", s.handleWebhook)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ============================================================================
// Quotes
// ============================================================================

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var req carrier.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Origin.CountryCode == "" || req.Destination.CountryCode == "" {
		s.writeError(w, http.StatusBadRequest, "origin and destination country codes are required")
		return
	}
	if len(req.Packages) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one package is required")
		return
	}

	started := time.Now()
	result, err := s.engine.Compare(r.Context(), &req, s.env)
	elapsed := time.Since(started).Seconds()

	switch {
	case errors.Is(err, quote.ErrNoEligibleCarriers):
		s.metrics.RecordQuote("no_eligible", elapsed)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, quote.ErrNoQuotes):
		s.metrics.RecordQuote("all_failed", elapsed)
		s.recordFailures(result)
		s.writeJSON(w, http.StatusBadGateway, result)
		return
	case err != nil:
		s.metrics.RecordQuote("error", elapsed)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.RecordQuote("ok", elapsed)
	s.recordFailures(result)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) recordFailures(result *quote.ComparisonResult) {
	if result == nil {
		return
	}
	for code, failure := range result.Errors {
		s.metrics.RecordCarrierError(code, string(failure.Kind))
	}
}

// ============================================================================
// Carrier health
// ============================================================================

func (s *Server) handleCarrierHealth(w http.ResponseWriter, r *http.Request) {
	snapshots := s.registry.Health()
	for _, snap := range snapshots {
		s.metrics.SetBreakerState(snap.Carrier, breakerStateValue(snap.State))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"carriers": snapshots})
}

func breakerStateValue(state breaker.State) float64 {
	switch state {
	case breaker.Open:
		return 2
	case breaker.HalfOpen:
		return 1
	default:
		return 0
	}
}

// ============================================================================
// Credential administration
// ============================================================================

type credentialRequest struct {
	Carrier     string `json:"carrier"`
	Type        string `json:"type"`
	Environment string `json:"environment"`
	Value       string `json:"value"`
}

func (s *Server) handleStoreCredential(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentialRequest(w, r)
	if !ok {
		return
	}

	ref, err := s.store.Store(req.Carrier, req.Type, carrier.Environment(req.Environment), req.Value)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.logger.Ctx(r.Context()).Info("credential stored",
		zap.String("carrier", ref.Carrier),
		zap.String("type", ref.Type),
		zap.Int("version", ref.Version),
	)
	s.writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) handleRotateCredential(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentialRequest(w, r)
	if !ok {
		return
	}

	ref, err := s.store.Rotate(req.Carrier, req.Type, carrier.Environment(req.Environment), req.Value)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Ctx(r.Context()).Info("credential rotated",
		zap.String("carrier", ref.Carrier),
		zap.String("type", ref.Type),
		zap.Int("version", ref.Version),
	)
	s.writeJSON(w, http.StatusOK, ref)
}

func (s *Server) decodeCredentialRequest(w http.ResponseWriter, r *http.Request) (credentialRequest, bool) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, false
	}
	if req.Carrier == "" || req.Type == "" || req.Value == "" {
		s.writeError(w, http.StatusBadRequest, "carrier, type, and value are required")
		return req, false
	}
	if req.Environment == "" {
		req.Environment = string(s.env)
	}
	return req, true
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("carrier")

	var statuses []credentials.Status
	if code != "" {
		statuses = s.store.StatusFor(code)
	} else {
		for _, profile := range s.registry.Profiles() {
			statuses = append(statuses, s.store.StatusFor(profile.Code)...)
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"credentials": statuses})
}

// ============================================================================
// Webhooks
// ============================================================================

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("carrier")

	profile, err := s.registry.Profile(code)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown carrier")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}

	signature := r.Header.Get(profile.Webhook.SignatureHeader)
	outcome, err := s.pipeline.Receive(r.Context(), code, s.env, payload, signature)
	if err != nil {
		switch {
		case carrier.IsKind(err, carrier.KindSignatureInvalid), carrier.IsKind(err, carrier.KindCredentialNotFound):
			s.metrics.RecordWebhook(code, "rejected")
			s.writeError(w, http.StatusUnauthorized, "signature verification failed")
		case carrier.IsKind(err, carrier.KindUnknownCarrier):
			s.writeError(w, http.StatusNotFound, "unknown carrier")
		default:
			s.metrics.RecordWebhook(code, "failed")
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.metrics.RecordWebhook(code, string(outcome))
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": string(outcome)})
}

// ============================================================================
// Response helpers
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
