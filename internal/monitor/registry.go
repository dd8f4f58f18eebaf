// Package monitor provides a named-counter registry sampled on a fixed
// interval, reporting each counter's per-interval rate through structured
// logs and a matching Prometheus gauge. It mirrors the kucoin_arbitrage
// counter set (api input, best price, chance, order) generalized to an
// arbitrary set of named counters registered by each pipeline stage.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// Registry holds the set of counters sampled by Run.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*types.Counter

	interval time.Duration
	logger   *zap.Logger
}

// Config configures a Registry.
type Config struct {
	// Interval is how often registered counters are sampled and reset.
	Interval time.Duration
	Logger   *zap.Logger
}

// New creates an empty Registry. Register counters before calling Run.
func New(cfg Config) *Registry {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Registry{
		counters: make(map[string]*types.Counter),
		interval: interval,
		logger:   cfg.Logger,
	}
}

// Register adds a named counter to the registry, creating it if it does
// not already exist, and returns it. Safe to call from multiple
// goroutines during pipeline setup.
func (r *Registry) Register(name string) *types.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[name]; ok {
		return c
	}
	c := types.NewCounter(name)
	r.counters[name] = c
	return c
}

// Run samples every registered counter on Interval until ctx is canceled,
// logging each one's per-interval rate and publishing it to
// rateGauge. Counters registered after Run starts are picked up on the
// next tick.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *Registry) sample() {
	r.mu.Lock()
	snapshot := make(map[string]*types.Counter, len(r.counters))
	for name, c := range r.counters {
		snapshot[name] = c
	}
	r.mu.Unlock()

	perSecond := r.interval.Seconds()
	for name, c := range snapshot {
		count := c.Sample()
		rate := float64(count) / perSecond
		rateGauge.WithLabelValues(name).Set(rate)
		if r.logger != nil {
			r.logger.Info("counter-rate",
				zap.String("counter", name),
				zap.Int64("count", count),
				zap.Float64("per-second", rate))
		}
	}
}
