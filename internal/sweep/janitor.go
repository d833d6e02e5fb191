// Package sweep runs periodic housekeeping over in-memory state: expired
// cache entries and idle rate-limit windows.
package sweep

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_sweep_runs_total",
		Help: "Total housekeeping sweeps by task and result",
	}, []string{"task", "result"})

	sweepRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insight_sweep_removed_total",
		Help: "Total items removed by housekeeping sweeps by task",
	}, []string{"task"})
)

// Sweeper drops stale state and reports how many items it removed.
type Sweeper interface {
	Sweep() int
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func() int

// Sweep calls f.
func (f SweeperFunc) Sweep() int { return f() }

// Task is a named Sweeper.
type Task struct {
	Name    string
	Sweeper Sweeper
}

// Janitor runs its tasks on a fixed interval until its context ends.
type Janitor struct {
	interval time.Duration
	tasks    []Task
	logger   zerolog.Logger
}

// New creates a janitor. A non-positive interval disables Start.
func New(interval time.Duration, logger zerolog.Logger, tasks ...Task) *Janitor {
	return &Janitor{
		interval: interval,
		tasks:    tasks,
		logger:   logger,
	}
}

// Start launches the sweep loop and returns a channel closed once the loop
// has exited. Cancel ctx to stop it.
func (j *Janitor) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if j.interval <= 0 || len(j.tasks) == 0 {
		close(done)
		return done
	}

	t := time.NewTicker(j.interval)
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				j.RunOnce()
			}
		}
	}()

	j.logger.Info().
		Dur("interval", j.interval).
		Int("tasks", len(j.tasks)).
		Msg("Sweep janitor started")

	return done
}

// RunOnce runs every task once. A panicking task is logged and does not
// stop the others.
func (j *Janitor) RunOnce() {
	for _, task := range j.tasks {
		j.run(task)
	}
}

func (j *Janitor) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			sweepRunsTotal.WithLabelValues(task.Name, "panic").Inc()
			j.logger.Error().
				Str("task", task.Name).
				Interface("panic", r).
				Msg("Sweep task panicked")
		}
	}()

	removed := task.Sweeper.Sweep()
	sweepRunsTotal.WithLabelValues(task.Name, "ok").Inc()
	sweepRemovedTotal.WithLabelValues(task.Name).Add(float64(removed))

	if removed > 0 {
		j.logger.Debug().
			Str("task", task.Name).
			Int("removed", removed).
			Msg("Sweep completed")
	}
}
