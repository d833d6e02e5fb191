package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/insight-engine/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedType is returned for an analysis type no adapter implements.
var ErrUnsupportedType = errors.New("unsupported analysis type")

// Call outcomes recorded in metrics.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
	outcomePanic    = "panic"
)

var (
	providerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_provider_calls_total",
		Help: "Total provider adapter calls by provider, analysis type and outcome",
	}, []string{"provider", "analysis_type", "outcome"})

	providerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insight_provider_call_duration_seconds",
		Help:    "Provider adapter call duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider", "analysis_type"})
)

// Config holds dispatcher configuration.
type Config struct {
	// Timeout bounds each adapter call.
	Timeout time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}

// Dispatcher runs one analysis against all configured providers.
type Dispatcher struct {
	analyzers []provider.Analyzer
	config    Config
	logger    zerolog.Logger
}

// New creates a dispatcher. Providers missing from analyzers are filled in
// with provider.Unavailable so every merged result has all provider keys.
func New(analyzers []provider.Analyzer, config Config, logger zerolog.Logger) *Dispatcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	byName := make(map[provider.Name]provider.Analyzer, len(analyzers))
	for _, a := range analyzers {
		if a != nil {
			byName[a.Name()] = a
		}
	}

	ordered := make([]provider.Analyzer, 0, len(provider.Names()))
	for _, name := range provider.Names() {
		a, ok := byName[name]
		if !ok {
			logger.Warn().Str("provider", string(name)).Msg("No analyzer configured, provider will report errors")
			a = provider.Unavailable(name)
		}
		ordered = append(ordered, a)
	}

	return &Dispatcher{
		analyzers: ordered,
		config:    config,
		logger:    logger,
	}
}

// Dispatch runs analysisType on every provider concurrently and waits for
// all of them. The only error is ErrUnsupportedType, returned before any
// adapter is invoked.
func (d *Dispatcher) Dispatch(ctx context.Context, analysisType provider.AnalysisType, text string) (provider.Merged, error) {
	if !analysisType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, analysisType)
	}

	start := time.Now()
	merged := make(provider.Merged, len(d.analyzers))
	var mu sync.Mutex

	var g errgroup.Group
	for _, a := range d.analyzers {
		a := a
		g.Go(func() error {
			r := d.call(ctx, a, analysisType, text)
			mu.Lock()
			merged[a.Name()] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Debug().
		Str("analysis_type", string(analysisType)).
		Dur("duration", time.Since(start)).
		Msg("Dispatch complete")

	return merged, nil
}

// call runs a single adapter operation under its own deadline. An adapter
// that ignores its context is abandoned at the deadline; its goroutine
// finishes in the background and its late answer is dropped.
func (d *Dispatcher) call(ctx context.Context, a provider.Analyzer, t provider.AnalysisType, text string) provider.Result {
	name := a.Name()
	op, ok := provider.OperationFor(a, t)
	if !ok {
		return provider.Failure(provider.FailureMessage(t, name))
	}

	callCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan provider.Result, 1)
	panicked := make(chan struct{}, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error().
					Str("provider", string(name)).
					Str("analysis_type", string(t)).
					Interface("panic", rec).
					Msg("Provider adapter panicked")
				panicked <- struct{}{}
				done <- provider.Failure(provider.FailureMessage(t, name))
			}
		}()
		done <- op(callCtx, text)
	}()

	var (
		result  provider.Result
		outcome string
	)
	select {
	case result = <-done:
		switch {
		case len(panicked) > 0:
			outcome = outcomePanic
		case result.IsError():
			outcome = outcomeError
		default:
			outcome = outcomeSuccess
		}
	case <-callCtx.Done():
		outcome, reason := outcomeTimeout, "request timed out"
		if ctx.Err() != nil {
			outcome, reason = outcomeCanceled, "request canceled"
		}
		result = provider.Failure(fmt.Sprintf("%s: %s", provider.FailureMessage(t, name), reason))
		d.logger.Warn().
			Str("provider", string(name)).
			Str("analysis_type", string(t)).
			Dur("timeout", d.config.Timeout).
			Str("outcome", outcome).
			Msg("Provider call did not finish in time")
	}

	elapsed := time.Since(start)
	providerCallsTotal.WithLabelValues(string(name), string(t), outcome).Inc()
	providerCallDuration.WithLabelValues(string(name), string(t)).Observe(elapsed.Seconds())

	return result
}
