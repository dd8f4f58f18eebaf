// Package gatekeeper arbitrates between raw ChanceEvents and the
// dispatcher: it de-duplicates in-flight cycles, enforces a per-cycle
// cool-down and a global in-flight notional budget, rejects stale
// opportunities, and reconciles in-flight state from the OrderChangeEvent
// stream. Repurposed from a wallet-balance circuit breaker's
// atomic-enabled-flag + hysteresis-threshold idiom into a budget guard: the
// dimension tracked is unacknowledged notional rather than wallet balance,
// and the hysteresis band becomes a fixed cool-down window per cycle.
package gatekeeper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// Config configures a Gatekeeper.
type Config struct {
	// GlobalBudget bounds the sum of unacknowledged notional across every
	// in-flight cycle.
	GlobalBudget decimal.Decimal
	// FreshnessWindow rejects chances whose DetectedAt is older than this.
	FreshnessWindow time.Duration
	// Cooldown is the normal post-completion cool-down for a cycle.
	Cooldown time.Duration
	// AckTimeout bounds how long a dispatched cycle may go without
	// reaching terminal state on all three legs before it is force-evicted.
	AckTimeout time.Duration
	// ForcedEvictionMultiplier scales Cooldown for a force-evicted cycle.
	ForcedEvictionMultiplier int64

	OutputBufferSize int
	Logger           *zap.Logger
}

type inFlightEntry struct {
	correlationID string
	cycleKey      string
	notional      decimal.Decimal
	legClientIDs  [3]string
	legsTerminal  [3]bool
	admittedAt    time.Time
}

func (e *inFlightEntry) allTerminal() bool {
	return e.legsTerminal[0] && e.legsTerminal[1] && e.legsTerminal[2]
}

// Gatekeeper is the pipeline's third stage.
type Gatekeeper struct {
	cfg Config

	mu            sync.Mutex
	inFlight      map[string]*inFlightEntry // cycle key -> entry
	byCorrelation map[string]string         // correlation id -> cycle key
	cooldowns     map[string]time.Time      // cycle key -> expiry
	usedBudget    decimal.Decimal
	quiesced      bool

	orderChan chan types.OrderEvent
	logger    *zap.Logger
}

// New creates a Gatekeeper. Call Run to begin consuming chances and order
// change events.
func New(cfg Config) *Gatekeeper {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 500 * time.Millisecond
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Second
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	if cfg.ForcedEvictionMultiplier <= 0 {
		cfg.ForcedEvictionMultiplier = 10
	}
	bufSize := cfg.OutputBufferSize
	if bufSize <= 0 {
		bufSize = 16
	}

	return &Gatekeeper{
		cfg:           cfg,
		inFlight:      make(map[string]*inFlightEntry),
		byCorrelation: make(map[string]string),
		cooldowns:     make(map[string]time.Time),
		usedBudget:    decimal.Zero,
		orderChan:     make(chan types.OrderEvent, bufSize),
		logger:        cfg.Logger,
	}
}

// Run consumes chances and order change events until ctx is canceled, and
// periodically sweeps for ack-timeout evictions.
func (g *Gatekeeper) Run(ctx context.Context, chances <-chan types.ChanceEvent, changes <-chan types.OrderChangeEvent) {
	defer close(g.orderChan)

	sweep := time.NewTicker(g.cfg.AckTimeout / 2)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case chance, ok := <-chances:
			if !ok {
				chances = nil
				continue
			}
			g.handleChance(chance)
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			g.handleOrderChange(change)
		case <-sweep.C:
			g.sweepExpired()
		}
	}
}

func (g *Gatekeeper) handleChance(ev types.ChanceEvent) {
	g.mu.Lock()

	if g.quiesced {
		g.mu.Unlock()
		chancesRejectedTotal.WithLabelValues("quiesced").Inc()
		return
	}

	if time.Since(ev.DetectedAt) > g.cfg.FreshnessWindow {
		g.mu.Unlock()
		chancesRejectedTotal.WithLabelValues("stale").Inc()
		return
	}

	if _, inFlight := g.inFlight[ev.CycleID]; inFlight {
		g.mu.Unlock()
		chancesRejectedTotal.WithLabelValues("in-flight").Inc()
		return
	}

	if expiry, cooling := g.cooldowns[ev.CycleID]; cooling && time.Now().Before(expiry) {
		g.mu.Unlock()
		chancesRejectedTotal.WithLabelValues("cooldown").Inc()
		return
	}

	if g.usedBudget.Add(ev.Notional).GreaterThan(g.cfg.GlobalBudget) {
		g.mu.Unlock()
		chancesRejectedTotal.WithLabelValues("budget").Inc()
		return
	}

	root := uuid.NewString()
	entry := &inFlightEntry{
		correlationID: root,
		cycleKey:      ev.CycleID,
		notional:      ev.Notional,
		admittedAt:    time.Now(),
	}
	for i := range entry.legClientIDs {
		entry.legClientIDs[i] = types.LegCorrelationID(root, i)
	}

	order := types.OrderEvent{
		CorrelationID: root,
		CycleID:       ev.CycleID,
		CommitAt:      entry.admittedAt,
		LegSymbols:    ev.LegSymbols,
		LegSides:      ev.LegSides,
		LegPrices:     ev.LegPrices,
		LegSizes:      ev.LegSizes,
	}

	select {
	case g.orderChan <- order:
		g.inFlight[ev.CycleID] = entry
		g.byCorrelation[root] = ev.CycleID
		g.usedBudget = g.usedBudget.Add(ev.Notional)
		g.mu.Unlock()

		chancesAdmittedTotal.Inc()
		inFlightNotional.Set(mustFloat(g.usedBudget))
		inFlightCycles.Set(float64(len(g.inFlight)))
	default:
		g.mu.Unlock()
		chancesRejectedTotal.WithLabelValues("dispatch-channel-full").Inc()
		g.logger.Warn("order-channel-full", zap.String("cycle", ev.CycleID))
	}
}

func (g *Gatekeeper) handleOrderChange(ev types.OrderChangeEvent) {
	if ev.State != types.OrderDone && ev.State != types.OrderCanceled {
		return
	}
	if ev.LegIndex < 0 || ev.LegIndex > 2 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cycleKey, ok := g.byCorrelation[ev.CorrelationID]
	if !ok {
		return
	}
	entry, ok := g.inFlight[cycleKey]
	if !ok {
		return
	}

	entry.legsTerminal[ev.LegIndex] = true
	if entry.allTerminal() {
		g.evictLocked(entry, g.cfg.Cooldown)
	}
}

// sweepExpired force-evicts any in-flight cycle that has not reached
// terminal state on all three legs within AckTimeout.
func (g *Gatekeeper) sweepExpired() {
	g.mu.Lock()
	defer g.mu.Unlock()

	deadline := time.Now().Add(-g.cfg.AckTimeout)
	for _, entry := range g.inFlight {
		if entry.admittedAt.Before(deadline) {
			forcedEvictionsTotal.Inc()
			penalty := g.cfg.Cooldown * time.Duration(g.cfg.ForcedEvictionMultiplier)
			g.logger.Warn("forced-eviction",
				zap.String("cycle", entry.cycleKey),
				zap.String("correlation_id", entry.correlationID),
				zap.Duration("cooldown_penalty", penalty))
			g.evictLocked(entry, penalty)
		}
	}
}

// evictLocked removes entry from in-flight bookkeeping and opens a
// cool-down for its cycle. Caller must hold g.mu.
func (g *Gatekeeper) evictLocked(entry *inFlightEntry, cooldown time.Duration) {
	delete(g.inFlight, entry.cycleKey)
	delete(g.byCorrelation, entry.correlationID)
	g.usedBudget = g.usedBudget.Sub(entry.notional)
	if g.usedBudget.IsNegative() {
		g.usedBudget = decimal.Zero
	}
	g.cooldowns[entry.cycleKey] = time.Now().Add(cooldown)

	inFlightNotional.Set(mustFloat(g.usedBudget))
	inFlightCycles.Set(float64(len(g.inFlight)))
}

// Quiesce stops admitting new chances. Reconciliation of already in-flight
// cycles via OrderChangeEvent continues unaffected.
func (g *Gatekeeper) Quiesce() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quiesced = true
}

// Resume un-quiesces the Gatekeeper after rebuilding in-flight state from a
// REST open-orders snapshot: any in-flight cycle none of whose leg client
// order ids appear in stillOpen is assumed to have completed while the
// private stream was disconnected, and is evicted with a normal cool-down.
func (g *Gatekeeper) Resume(stillOpen map[string]bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, entry := range g.inFlight {
		anyOpen := false
		for _, id := range entry.legClientIDs {
			if stillOpen[id] {
				anyOpen = true
				break
			}
		}
		if !anyOpen {
			g.evictLocked(entry, g.cfg.Cooldown)
		}
	}
	g.quiesced = false
}

// Orders returns the outbound channel the Dispatcher consumes.
func (g *Gatekeeper) Orders() <-chan types.OrderEvent {
	return g.orderChan
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
