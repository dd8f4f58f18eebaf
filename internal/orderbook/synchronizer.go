// Package orderbook implements the Synchronizer: it turns an
// unordered stream of raw book-delta events into a gap-free, monotone
// FullOrderbook and emits TopOfBookChanged events exactly when the best
// bid or best ask for a symbol moves.
package orderbook

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// SnapshotFetcher is the REST half of the transport adapter the
// Synchronizer depends on.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, symbol string, depth int) (sequence uint64, bids, asks []types.PriceLevel, err error)
}

// Config configures a Synchronizer.
type Config struct {
	Book    *types.FullOrderbook
	Fetcher SnapshotFetcher
	// Depth bounds how much of a REST snapshot response is parsed: a
	// configured depth, default 100.
	Depth int
	// Workers shards symbols across this many goroutines by hash, so
	// delta application across symbols proceeds in parallel while each
	// individual symbol's deltas are still applied strictly in order
	// without contending on a shared lock.
	Workers int
	// TopOfBookBufferSize is the outbound channel capacity, default 512.
	TopOfBookBufferSize int
	// SnapshotInitialBackoff/MaxBackoff bound the exponential retry on
	// snapshot failure, capped at 30s and retried indefinitely.
	SnapshotInitialBackoff time.Duration
	SnapshotMaxBackoff     time.Duration
	Logger                 *zap.Logger

	// DeltaCounter and TopOfBookCounter, when set, are incremented once
	// per raw delta consumed and once per top-of-book change emitted --
	// the monitor registry's view of this stage's two edges.
	DeltaCounter     *types.Counter
	TopOfBookCounter *types.Counter
}

// Synchronizer is the event pipeline's first stage.
type Synchronizer struct {
	book    *types.FullOrderbook
	fetcher SnapshotFetcher
	depth   int
	workers int

	initialBackoff time.Duration
	maxBackoff     time.Duration

	topChan chan types.OrderbookEvent
	logger  *zap.Logger

	deltaCounter     *types.Counter
	topOfBookCounter *types.Counter

	wg sync.WaitGroup
}

// New creates a Synchronizer. Call Start to begin consuming deltas.
func New(cfg Config) *Synchronizer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	depth := cfg.Depth
	if depth <= 0 {
		depth = 100
	}
	bufSize := cfg.TopOfBookBufferSize
	if bufSize <= 0 {
		bufSize = 512
	}
	initial := cfg.SnapshotInitialBackoff
	if initial <= 0 {
		initial = 250 * time.Millisecond
	}
	maxBackoff := cfg.SnapshotMaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	return &Synchronizer{
		book:             cfg.Book,
		fetcher:          cfg.Fetcher,
		depth:            depth,
		workers:          workers,
		initialBackoff:   initial,
		maxBackoff:       maxBackoff,
		topChan:          make(chan types.OrderbookEvent, bufSize),
		logger:           cfg.Logger,
		deltaCounter:     cfg.DeltaCounter,
		topOfBookCounter: cfg.TopOfBookCounter,
	}
}

// symbolState tracks per-symbol reconciliation state. Owned exclusively by
// the worker goroutine responsible for its symbol's hash shard, so it needs
// no lock of its own.
type symbolState struct {
	installed       bool
	buffered        []types.OrderbookEvent
	snapshotPending bool
}

type snapshotResult struct {
	symbol   string
	sequence uint64
	bids     []types.PriceLevel
	asks     []types.PriceLevel
}

// Start spawns the dispatcher and worker goroutines. deltas is the public
// stream's raw delta channel; Start takes ownership of consuming it until
// ctx is canceled or deltas closes.
func (s *Synchronizer) Start(ctx context.Context, deltas <-chan types.OrderbookEvent) {
	workerChans := make([]chan types.OrderbookEvent, s.workers)
	for i := range workerChans {
		workerChans[i] = make(chan types.OrderbookEvent, 2048/s.workers+1)
	}

	s.wg.Add(1)
	go s.dispatch(ctx, deltas, workerChans)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx, workerChans[i])
	}
}

func (s *Synchronizer) dispatch(ctx context.Context, deltas <-chan types.OrderbookEvent, workerChans []chan types.OrderbookEvent) {
	defer s.wg.Done()
	defer func() {
		for _, wc := range workerChans {
			close(wc)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-deltas:
			if !ok {
				return
			}
			if s.deltaCounter != nil {
				s.deltaCounter.Inc()
			}
			shard := shardFor(ev.Symbol, len(workerChans))
			select {
			case workerChans[shard] <- ev:
			default:
				deltasTotal.WithLabelValues("dropped").Inc()
				s.logger.Warn("delta-shard-channel-full", zap.String("symbol", ev.Symbol))
			}
		}
	}
}

func shardFor(symbol string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return int(h.Sum32()) % n
}

func (s *Synchronizer) runWorker(ctx context.Context, in <-chan types.OrderbookEvent) {
	defer s.wg.Done()

	states := make(map[string]*symbolState)
	results := make(chan snapshotResult, 16)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			s.handleDelta(ctx, ev, states, results)
		case res := <-results:
			s.handleSnapshot(ctx, res, states, results)
		}
	}
}

func (s *Synchronizer) stateFor(symbol string, states map[string]*symbolState) *symbolState {
	st, ok := states[symbol]
	if !ok {
		st = &symbolState{}
		states[symbol] = st
	}
	return st
}

func (s *Synchronizer) handleDelta(ctx context.Context, ev types.OrderbookEvent, states map[string]*symbolState, results chan<- snapshotResult) {
	start := time.Now()
	defer func() { deltaApplyDuration.Observe(time.Since(start).Seconds()) }()

	st := s.stateFor(ev.Symbol, states)

	if !st.installed {
		st.buffered = append(st.buffered, ev)
		s.requestSnapshot(ctx, ev.Symbol, st, results)
		return
	}

	ob := s.book.GetOrCreate(ev.Symbol)
	outcome, changed := applyOrDiscard(ob, ev)

	switch outcome {
	case outcomeGap:
		gapsDetectedTotal.Inc()
		deltasTotal.WithLabelValues("gap").Inc()
		st.installed = false
		st.buffered = []types.OrderbookEvent{ev}
		s.requestSnapshot(ctx, ev.Symbol, st, results)
	case outcomeStale:
		deltasTotal.WithLabelValues("stale").Inc()
	case outcomeApplied:
		deltasTotal.WithLabelValues("applied").Inc()
		if changed {
			s.publishTopOfBook(ob, ev.Symbol)
		}
	}
}

type applyOutcome int

const (
	outcomeApplied applyOutcome = iota
	outcomeGap
	outcomeStale
)

// applyOrDiscard implements the per-delta gap/stale/apply branch against
// an already-installed book.
func applyOrDiscard(ob *types.Orderbook, ev types.OrderbookEvent) (applyOutcome, bool) {
	cur := ob.SeqNo()

	switch {
	case ev.FromSeq > cur+1:
		return outcomeGap, false
	case ev.ToSeq <= cur:
		return outcomeStale, false
	default:
		changed := ob.ApplyLevels(ev.ToSeq, ev.Bids, ev.Asks)
		return outcomeApplied, changed
	}
}

func (s *Synchronizer) requestSnapshot(ctx context.Context, symbol string, st *symbolState, results chan<- snapshotResult) {
	if st.snapshotPending {
		return
	}
	st.snapshotPending = true

	go func() {
		seq, bids, asks, ok := s.fetchWithRetry(ctx, symbol)
		if !ok {
			return // ctx canceled while retrying
		}
		select {
		case results <- snapshotResult{symbol: symbol, sequence: seq, bids: bids, asks: asks}:
		case <-ctx.Done():
		}
	}()
}

// fetchWithRetry retries the snapshot request with exponential backoff
// capped at s.maxBackoff, indefinitely.
func (s *Synchronizer) fetchWithRetry(ctx context.Context, symbol string) (sequence uint64, bids, asks []types.PriceLevel, ok bool) {
	backoff := s.initialBackoff

	for {
		select {
		case <-ctx.Done():
			return 0, nil, nil, false
		default:
		}

		start := time.Now()
		seq, b, a, err := s.fetcher.Snapshot(ctx, symbol, s.depth)
		snapshotRequestDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			return seq, b, a, true
		}

		s.logger.Warn("snapshot-request-failed",
			zap.String("symbol", symbol), zap.Error(err), zap.Duration("backoff", backoff))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return 0, nil, nil, false
		}

		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

func (s *Synchronizer) handleSnapshot(ctx context.Context, res snapshotResult, states map[string]*symbolState, results chan<- snapshotResult) {
	st := s.stateFor(res.symbol, states)
	st.snapshotPending = false

	ob := s.book.GetOrCreate(res.symbol)
	ob.InstallSnapshot(res.sequence, res.bids, res.asks)
	st.installed = true
	snapshotsInstalledTotal.Inc()
	trackedSymbols.Set(float64(len(s.book.Symbols())))

	s.publishTopOfBook(ob, res.symbol)

	buffered := st.buffered
	st.buffered = nil

	for i, ev := range buffered {
		if ev.ToSeq <= res.sequence {
			continue // dropped: superseded by the snapshot
		}
		outcome, changed := applyOrDiscard(ob, ev)
		switch outcome {
		case outcomeGap:
			// A gap inside the buffered replay means the buffer itself
			// has a hole (upstream drop); re-snapshot from here, carrying
			// forward everything from this event on since none of it can
			// be trusted against the now-stale book.
			gapsDetectedTotal.Inc()
			st.installed = false
			st.buffered = append([]types.OrderbookEvent{ev}, buffered[i+1:]...)
			s.requestSnapshot(ctx, res.symbol, st, results)
			return
		case outcomeStale:
			deltasTotal.WithLabelValues("stale").Inc()
		case outcomeApplied:
			deltasTotal.WithLabelValues("applied").Inc()
			if changed {
				s.publishTopOfBook(ob, res.symbol)
			}
		}
	}
}

func (s *Synchronizer) publishTopOfBook(ob *types.Orderbook, symbol string) {
	bestBid, bestAsk, _, _, seq := ob.TopOfBook()
	event := types.OrderbookEvent{
		Kind:     types.EventTopOfBookChanged,
		Symbol:   symbol,
		BestBid:  bestBid,
		BestAsk:  bestAsk,
		Sequence: seq,
	}
	select {
	case s.topChan <- event:
		if s.topOfBookCounter != nil {
			s.topOfBookCounter.Inc()
		}
	default:
		topOfBookDroppedTotal.Inc()
		s.logger.Warn("top-of-book-channel-full", zap.String("symbol", symbol))
	}
}

// TopOfBookChanges returns the outbound channel the Detector consumes.
func (s *Synchronizer) TopOfBookChanges() <-chan types.OrderbookEvent {
	return s.topChan
}

// Close waits for all worker goroutines to exit after ctx has been
// canceled, then closes the outbound channel.
func (s *Synchronizer) Close() {
	s.wg.Wait()
	close(s.topChan)
}
