package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request gating.
var (
	rateLimitDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_rate_limit_decisions_total",
		Help: "Total number of rate limit decisions by result and reason",
	}, []string{"result", "reason"})

	rateLimitTrackedKeys = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "insight_rate_limit_tracked_keys",
		Help: "Number of client and session keys with live rate limit state",
	}, []string{"kind"})
)

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// Limiter tracks request windows per client key and per session key.
// All methods are safe for concurrent use; missing state counts as zero usage.
type Limiter struct {
	mu       sync.Mutex
	cfg      Config
	clients  map[string]*window
	sessions map[string]*window
	now      func() time.Time
	logger   zerolog.Logger
}

// NewLimiter creates a limiter with the given policy.
func NewLimiter(cfg Config, logger zerolog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:      cfg,
		clients:  make(map[string]*window),
		sessions: make(map[string]*window),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the active policy.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Check evaluates the policy without recording anything.
func (l *Limiter) Check(clientKey, sessionKey string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.checkLocked(clientKey, sessionKey, l.now())
	l.observe(clientKey, d)
	return d
}

// Record appends a request for both keys and stamps the client's last
// request time.
func (l *Limiter) Record(clientKey, sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.recordLocked(clientKey, sessionKey, l.now())
}

// Admit checks and, when allowed, records in one critical section, so two
// concurrent requests of one client cannot both pass before either counts.
func (l *Limiter) Admit(clientKey, sessionKey string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	d := l.checkLocked(clientKey, sessionKey, now)
	if d.Allowed {
		l.recordLocked(clientKey, sessionKey, now)
	}
	l.observe(clientKey, d)
	return d
}

// Sweep drops windows with no timestamps left inside their retention
// period and returns the number of keys removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0

	for k, w := range l.clients {
		w.prune(now, DayWindow)
		if w.empty() {
			delete(l.clients, k)
			removed++
		}
	}
	for k, w := range l.sessions {
		w.prune(now, l.cfg.SessionWindow)
		if w.empty() {
			delete(l.sessions, k)
			removed++
		}
	}

	l.updateGauges()
	return removed
}

// Usage reports the current request counts of a client and a session.
type Usage struct {
	LastHour int
	LastDay  int
	Session  int
}

// Usage returns the counts that the next Check would evaluate.
func (l *Limiter) Usage(clientKey, sessionKey string) Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var u Usage
	if w, ok := l.clients[clientKey]; ok {
		w.prune(now, DayWindow)
		u.LastHour = w.countWithin(now, HourWindow)
		u.LastDay = len(w.requests)
	}
	if w, ok := l.sessions[sessionKey]; ok {
		w.prune(now, l.cfg.SessionWindow)
		u.Session = len(w.requests)
	}
	return u
}

func (l *Limiter) checkLocked(clientKey, sessionKey string, now time.Time) Decision {
	if w, ok := l.clients[clientKey]; ok {
		w.prune(now, DayWindow)

		if !w.lastRequest.IsZero() && now.Sub(w.lastRequest) < l.cfg.Cooldown {
			return reject(ReasonCooldown, l.cfg.Cooldown,
				"Please wait %d seconds between requests.", int(l.cfg.Cooldown.Seconds()))
		}
		if w.countWithin(now, HourWindow) >= l.cfg.HourlyLimit {
			return reject(ReasonHourly, HourWindow,
				"Hourly limit of %d requests reached. Please try again later.", l.cfg.HourlyLimit)
		}
		if len(w.requests) >= l.cfg.DailyLimit {
			return reject(ReasonDaily, DayWindow,
				"Daily limit of %d requests reached. Please try again tomorrow.", l.cfg.DailyLimit)
		}
	}

	if w, ok := l.sessions[sessionKey]; ok {
		w.prune(now, l.cfg.SessionWindow)
		if len(w.requests) >= l.cfg.SessionLimit {
			return reject(ReasonSession, l.cfg.SessionWindow,
				"Session limit of %d requests reached. Please try again later.", l.cfg.SessionLimit)
		}
	}

	return allow()
}

func (l *Limiter) recordLocked(clientKey, sessionKey string, now time.Time) {
	cw, ok := l.clients[clientKey]
	if !ok {
		cw = &window{}
		l.clients[clientKey] = cw
	}
	cw.record(now)

	sw, ok := l.sessions[sessionKey]
	if !ok {
		sw = &window{}
		l.sessions[sessionKey] = sw
	}
	sw.record(now)

	l.updateGauges()
}

func (l *Limiter) observe(clientKey string, d Decision) {
	if d.Allowed {
		rateLimitDecisionsTotal.WithLabelValues("allowed", "").Inc()
		return
	}

	rateLimitDecisionsTotal.WithLabelValues("rejected", string(d.Reason)).Inc()
	l.logger.Warn().
		Str("client_key", clientKey).
		Str("reason", string(d.Reason)).
		Dur("retry_after", d.RetryAfter).
		Msg("Request rejected by rate limiter")
}

func (l *Limiter) updateGauges() {
	rateLimitTrackedKeys.WithLabelValues("client").Set(float64(len(l.clients)))
	rateLimitTrackedKeys.WithLabelValues("session").Set(float64(len(l.sessions)))
}
