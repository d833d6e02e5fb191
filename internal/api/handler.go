// Package api serves the analyze endpoint: validation, rate limiting,
// result caching and the fan-out to every NLP provider.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/insight-engine/pkg/cache"
	"github.com/Sternrassler/insight-engine/pkg/provider"
	"github.com/Sternrassler/insight-engine/pkg/ratelimit"
)

// MaxBodyBytes caps the analyze request body.
const MaxBodyBytes = 1 << 20

// Request outcomes used as metric labels.
const (
	outcomeOK          = "ok"
	outcomeCached      = "cached"
	outcomeInvalid     = "invalid"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_http_requests_total",
		Help: "Total analyze requests by analysis type and outcome",
	}, []string{"analysis_type", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insight_http_request_duration_seconds",
		Help:    "Analyze request duration in seconds by analysis type",
		Buckets: []float64{0.005, 0.05, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"analysis_type"})
)

// Dispatcher runs one analysis across every provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, t provider.AnalysisType, text string) (provider.Merged, error)
}

// Limiter admits or rejects a request and records admitted ones.
type Limiter interface {
	Admit(clientKey, sessionKey string) ratelimit.Decision
}

// Config holds the handler dependencies.
type Config struct {
	Dispatcher Dispatcher
	Limiter    Limiter
	Cache      cache.Store
	CacheTTL   time.Duration
	Text       TextLimits
	Logger     zerolog.Logger

	// Now stamps cache entries. Defaults to time.Now.
	Now func() time.Time
}

// Handler serves POST /api/analyze.
type Handler struct {
	dispatcher Dispatcher
	limiter    Limiter
	cache      cache.Store
	ttl        time.Duration
	validator  *requestValidator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewHandler validates cfg and builds a handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("limiter is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("cache store is required")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be > 0 (got %s)", cfg.CacheTTL)
	}
	if cfg.Text == (TextLimits{}) {
		cfg.Text = DefaultTextLimits()
	}
	if cfg.Text.MinLength < 1 || cfg.Text.MaxLength < cfg.Text.MinLength {
		return nil, fmt.Errorf("invalid text limits %d..%d", cfg.Text.MinLength, cfg.Text.MaxLength)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Handler{
		dispatcher: cfg.Dispatcher,
		limiter:    cfg.Limiter,
		cache:      cfg.Cache,
		ttl:        cfg.CacheTTL,
		validator:  newRequestValidator(cfg.Text),
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// Analyze runs validation, the rate-limit gate and the cache lookup, and
// dispatches to the providers on a miss.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, verr := h.decode(w, r)
	if verr != nil {
		h.finish(start, "", outcomeInvalid)
		writeValidation(w, verr)
		return
	}

	analysisType, verr := h.validator.check(req)
	if verr != nil {
		h.finish(start, "", outcomeInvalid)
		writeValidation(w, verr)
		return
	}

	clientKey := ClientKey(r)
	logger := h.logger.With().
		Str("analysis_type", string(analysisType)).
		Str("client_key", clientKey).
		Logger()

	if d := h.limiter.Admit(clientKey, SessionKey(r, clientKey)); !d.Allowed {
		h.finish(start, analysisType, outcomeRateLimited)
		writeRateLimited(w, &RateLimitError{
			Title:      errRateLimited,
			Details:    d.Message,
			RetryAfter: d.RetryAfterSeconds(),
		})
		return
	}

	key := cache.NewKey(analysisType, req.Text)

	entry, err := h.cache.Get(r.Context(), key)
	switch {
	case err == nil:
		logger.Debug().Bool("cache_hit", true).Msg("Serving cached analysis")
		h.finish(start, analysisType, outcomeCached)
		writeAnalysis(w, analysisType, entry.Data, true)
		return
	case !errors.Is(err, cache.ErrCacheMiss):
		// Cache errors count as a miss.
		logger.Warn().Err(err).Msg("Cache lookup failed")
	}

	// A client disconnect does not cut provider calls short; each one is
	// bounded by the dispatcher's per-call timeout instead. Results are
	// shared through the cache, so they must not depend on one caller.
	merged, err := h.dispatcher.Dispatch(context.WithoutCancel(r.Context()), analysisType, req.Text)
	if err != nil {
		logger.Error().Err(err).Msg("Dispatch failed")
		h.finish(start, analysisType, outcomeError)
		writeInternal(w, "analysis could not be completed")
		return
	}

	data, err := merged.Encode()
	if err != nil {
		logger.Error().Err(err).Msg("Encoding merged result failed")
		h.finish(start, analysisType, outcomeError)
		writeInternal(w, "analysis result could not be encoded")
		return
	}

	if err := h.cache.Set(context.WithoutCancel(r.Context()), key, cache.NewEntryAt(data, h.now(), h.ttl)); err != nil {
		logger.Warn().Err(err).Msg("Cache store failed")
	}

	logger.Info().
		Bool("cache_hit", false).
		Dur("duration", time.Since(start)).
		Msg("Analysis completed")

	h.finish(start, analysisType, outcomeOK)
	writeAnalysis(w, analysisType, data, false)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*analyzeRequest, *ValidationError) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	var req analyzeRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var (
			maxErr  *http.MaxBytesError
			typeErr *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &maxErr):
			return nil, &ValidationError{
				Title:   errInvalidBody,
				Details: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			}
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return nil, &ValidationError{
				Title:   errInvalidBody,
				Details: fmt.Sprintf("%s must be a string", typeErr.Field),
			}
		case errors.Is(err, io.EOF):
			return nil, &ValidationError{Title: errInvalidBody, Details: "request body is empty"}
		default:
			return nil, &ValidationError{Title: errInvalidBody, Details: "request body must be a JSON object"}
		}
	}

	if dec.More() {
		return nil, &ValidationError{Title: errInvalidBody, Details: "unexpected trailing data"}
	}
	return &req, nil
}

func (h *Handler) finish(start time.Time, t provider.AnalysisType, outcome string) {
	label := string(t)
	if label == "" {
		label = "unknown"
	}
	requestsTotal.WithLabelValues(label, outcome).Inc()
	requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// pinger is implemented by cache stores backed by a remote service.
type pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports 503 while a remote cache store is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.cache.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("Cache store not ready")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeAnalysis writes the success body. data is the encoded provider map,
// embedded as-is so cached and fresh responses are byte-identical.
func writeAnalysis(w http.ResponseWriter, t provider.AnalysisType, data []byte, cached bool) {
	writeJSON(w, http.StatusOK, map[string]any{
		string(t): json.RawMessage(data),
		"message":  fmt.Sprintf("%s analysis completed successfully.", t),
		"cached":   cached,
	})
}
