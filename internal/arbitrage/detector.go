// Package arbitrage implements the Detector: it maintains a top-of-book
// cache fed by TopOfBookChanged events, re-evaluates every monitored cycle
// touched by a moved symbol, and emits a ChanceEvent when a cycle's
// expected profit clears the configured threshold.
package arbitrage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/internal/symbols"
	"github.com/mselser95/triarb/pkg/types"
)

// Config configures a Detector.
type Config struct {
	Universe *symbols.Universe

	// FeeRate is the per-leg taker fee, e.g. 0.001 for 10bps.
	FeeRate decimal.Decimal
	// ThresholdBps is the minimum expected profit, in basis points of
	// notional, required to emit a ChanceEvent.
	ThresholdBps decimal.Decimal
	// NotionalCeiling bounds the settlement-unit size of any one chance,
	// regardless of how much book depth is available.
	NotionalCeiling decimal.Decimal

	OutputBufferSize int
	Logger           *zap.Logger

	// ChanceCounter, when set, is incremented once per ChanceEvent
	// emitted -- the monitor registry's view of this stage's output edge.
	ChanceCounter *types.Counter
}

// Detector is the pipeline's second stage.
type Detector struct {
	universe *symbols.Universe

	feeRate         decimal.Decimal
	thresholdBps    decimal.Decimal
	notionalCeiling decimal.Decimal

	tops map[string]symbolTop
	// lastEmitted dedups repeat emissions for a cycle whose three leg
	// sequences are unchanged since the last chance it produced.
	lastEmitted map[int][3]uint64

	chanceChan    chan types.ChanceEvent
	logger        *zap.Logger
	chanceCounter *types.Counter
}

// New creates a Detector. Call Run to begin consuming top-of-book changes.
func New(cfg Config) *Detector {
	bufSize := cfg.OutputBufferSize
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Detector{
		universe:        cfg.Universe,
		feeRate:         cfg.FeeRate,
		thresholdBps:    cfg.ThresholdBps,
		notionalCeiling: cfg.NotionalCeiling,
		tops:            make(map[string]symbolTop),
		lastEmitted:     make(map[int][3]uint64),
		chanceChan:      make(chan types.ChanceEvent, bufSize),
		logger:          cfg.Logger,
		chanceCounter:   cfg.ChanceCounter,
	}
}

// Run consumes top-of-book changes until ctx is canceled or changes closes,
// updating the quote cache and re-evaluating every cycle the changed
// symbol touches.
func (d *Detector) Run(ctx context.Context, changes <-chan types.OrderbookEvent) {
	defer close(d.chanceChan)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-changes:
			if !ok {
				return
			}
			d.onTopOfBookChanged(ev)
		}
	}
}

func (d *Detector) onTopOfBookChanged(ev types.OrderbookEvent) {
	start := time.Now()
	defer func() { detectionDuration.Observe(time.Since(start).Seconds()) }()

	d.tops[ev.Symbol] = symbolTop{
		bid: legQuote{Price: ev.BestBid.Price, Size: ev.BestBid.Size, Sequence: ev.Sequence},
		ask: legQuote{Price: ev.BestAsk.Price, Size: ev.BestAsk.Size, Sequence: ev.Sequence},
	}

	for _, cycle := range d.universe.CyclesTouching(ev.Symbol) {
		d.evaluateAndMaybeEmit(cycle)
	}
}

// symbolTop is the current best bid and ask for one symbol; a cycle's leg
// picks whichever side it needs via Cycle.LegSides.
type symbolTop struct {
	bid, ask legQuote
}

func (d *Detector) evaluateAndMaybeEmit(cycle symbols.Cycle) {
	var quotes [3]legQuote
	var syms [3]types.Symbol

	for i, symID := range cycle.LegSymbols {
		top, ok := d.tops[symID]
		if !ok {
			return
		}
		if cycle.LegSides[i] == types.SideAsk {
			quotes[i] = top.ask
		} else {
			quotes[i] = top.bid
		}
		sym, ok := d.universe.Symbol(symID)
		if !ok {
			return
		}
		syms[i] = sym
	}

	result := evaluateCycle(cycle, quotes, syms, d.feeRate, d.thresholdBps, d.notionalCeiling)
	if !result.ok {
		return
	}

	var seqs [3]uint64
	for i, q := range quotes {
		seqs[i] = q.Sequence
	}
	if d.lastEmitted[cycle.ID] == seqs {
		chancesSkippedTotal.WithLabelValues("duplicate-sequence").Inc()
		return
	}
	d.lastEmitted[cycle.ID] = seqs

	var prices [3]decimal.Decimal
	for i, q := range quotes {
		prices[i] = q.Price
	}

	chance := types.ChanceEvent{
		CycleID:        cycle.Key(),
		DetectedAt:     time.Now(),
		LegSymbols:     cycle.LegSymbols,
		LegSides:       cycle.LegSides,
		LegPrices:      prices,
		LegSizes:       result.legSizes,
		LegSequences:   seqs,
		ExpectedProfit: result.expectedProfit,
		Notional:       result.notional,
	}

	chancesEmittedTotal.Inc()
	profitBps, _ := result.expectedProfit.Div(result.notional).Mul(decimal.NewFromInt(10000)).Float64()
	chanceProfitBPS.Observe(profitBps)
	notionalF, _ := result.notional.Float64()
	chanceNotional.Observe(notionalF)

	select {
	case d.chanceChan <- chance:
		if d.chanceCounter != nil {
			d.chanceCounter.Inc()
		}
	default:
		chancesSkippedTotal.WithLabelValues("output-channel-full").Inc()
		d.logger.Warn("chance-channel-full", zap.String("cycle", cycle.Key()))
	}
}

// Chances returns the outbound channel the Gatekeeper consumes.
func (d *Detector) Chances() <-chan types.ChanceEvent {
	return d.chanceChan
}
