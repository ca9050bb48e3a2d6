// Package quote implements concurrent multi-carrier quotation and
// recommendation on top of the carrier registry.
package quote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoEligibleCarriers means no registered carrier can quote the route.
var ErrNoEligibleCarriers = errors.New("no eligible carriers for route")

// ErrNoQuotes means every eligible carrier failed; per-carrier failures are
// in the ComparisonResult returned alongside.
var ErrNoQuotes = errors.New("all carriers failed to quote")

// DefaultTimeout bounds a comparison when the request does not set one.
const DefaultTimeout = 5 * time.Second

// Failure describes why one carrier produced no quote.
type Failure struct {
	Kind    carrier.Kind `json:"kind"`
	Message string       `json:"message"`
}

// ComparisonResult is the outcome of quoting one shipment across carriers.
// Quotes holds at most one offer per carrier, sorted by total cost.
type ComparisonResult struct {
	RequestID   string             `json:"request_id"`
	Quotes      []carrier.Quote    `json:"quotes"`
	Cheapest    *carrier.Quote     `json:"cheapest,omitempty"`
	Fastest     *carrier.Quote     `json:"fastest,omitempty"`
	Recommended *carrier.Quote     `json:"recommended,omitempty"`
	Errors      map[string]Failure `json:"errors,omitempty"`
	ElapsedMS   int64              `json:"elapsed_ms"`
}

// Engine fans quotation requests out to eligible carriers concurrently and
// ranks whatever comes back before the deadline.
type Engine struct {
	registry *carrier.Registry
	weights  Weights
	timeout  time.Duration
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the recommendation weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithTimeout overrides the default comparison deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithTracer attaches a tracer to the engine.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine creates a quotation engine over the registry.
func NewEngine(registry *carrier.Registry, logger *otelzap.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		weights:  DefaultWeights(),
		timeout:  DefaultTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare quotes the shipment with every eligible carrier in parallel and
// ranks the results. A slow or failing carrier never blocks the others: its
// failure is recorded in the result's Errors map and the comparison goes on.
// When every carrier fails, Compare returns the result (for its Errors map)
// together with ErrNoQuotes.
func (e *Engine) Compare(ctx context.Context, req *carrier.QuoteRequest, env carrier.Environment) (*ComparisonResult, error) {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "quote.compare")
		defer span.End()
	}
	started := time.Now()

	codes := e.registry.Eligible(carrier.CapQuote, req.Destination.CountryCode, req.Carriers)
	if len(codes) == 0 {
		return nil, ErrNoEligibleCarriers
	}

	timeout := e.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		quotes   []carrier.Quote
		failures = make(map[string]Failure, len(codes))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, code := range codes {
		g.Go(func() error {
			q, err := e.quoteOne(ctx, code, env, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				kind := carrier.KindOf(err)
				failures[code] = Failure{Kind: kind, Message: err.Error()}
				e.logger.Ctx(ctx).Warn("carrier failed to quote",
					zap.String("carrier", code),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
				// One carrier's failure never aborts the comparison.
				return nil
			}
			quotes = append(quotes, *q)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(quotes, func(i, j int) bool { return lessByCost(quotes[i], quotes[j]) })

	res := &ComparisonResult{
		RequestID: uuid.New().String(),
		Quotes:    quotes,
		Errors:    failures,
		ElapsedMS: time.Since(started).Milliseconds(),
	}
	if len(quotes) == 0 {
		return res, ErrNoQuotes
	}

	ranking := Rank(quotes, e.weights)
	res.Cheapest = ranking.Cheapest
	res.Fastest = ranking.Fastest
	res.Recommended = ranking.Recommended
	return res, nil
}

func (e *Engine) quoteOne(ctx context.Context, code string, env carrier.Environment, req *carrier.QuoteRequest) (*carrier.Quote, error) {
	managed, err := e.registry.Resolve(code, env)
	if err != nil {
		return nil, err
	}
	return managed.Quote(ctx, req)
}
