package types

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// PriceLevel is a (price, cumulative size) pair on one side of a book.
// Size == 0 means "remove this level" when applied as a delta.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// bookSide holds one side of an order book as a map keyed by the exact
// decimal string of the price (so comparisons never touch float identity)
// plus a sorted slice of the same keys for fast top-of-book and iteration.
// A plain sorted slice is sufficient at book depths this system deals with
// (exchange instruments cap snapshot depth, see the Synchronizer's Config.Depth);
// no ordered-map dependency is introduced for it.
type bookSide struct {
	descending bool // true for bids (best = highest price first)
	levels     map[string]decimal.Decimal
	order      []decimal.Decimal
}

func newBookSide(descending bool) *bookSide {
	return &bookSide{
		descending: descending,
		levels:     make(map[string]decimal.Decimal),
		order:      make([]decimal.Decimal, 0, 64),
	}
}

func (b *bookSide) less(i, j decimal.Decimal) bool {
	if b.descending {
		return i.GreaterThan(j)
	}
	return i.LessThan(j)
}

// insertionIndex returns the index price occupies (or would occupy) in the
// side's best-first ordering.
func (b *bookSide) insertionIndex(price decimal.Decimal) int {
	return sort.Search(len(b.order), func(i int) bool {
		return b.less(price, b.order[i]) || b.order[i].Equal(price)
	})
}

// apply inserts (size > 0) or removes (size == 0) a level. Returns true if
// the top-of-book entry was the one touched, directly or by replacement.
func (b *bookSide) apply(price, size decimal.Decimal) (topChanged bool) {
	key := price.String()
	wasTop := len(b.order) > 0 && b.order[0].Equal(price)

	if size.IsZero() {
		if _, ok := b.levels[key]; !ok {
			return false
		}
		delete(b.levels, key)
		idx := b.insertionIndex(price)
		if idx < len(b.order) && b.order[idx].Equal(price) {
			b.order = append(b.order[:idx], b.order[idx+1:]...)
		}
		return wasTop
	}

	_, existed := b.levels[key]
	b.levels[key] = size
	if !existed {
		idx := b.insertionIndex(price)
		b.order = append(b.order, decimal.Decimal{})
		copy(b.order[idx+1:], b.order[idx:])
		b.order[idx] = price
	}
	isTop := len(b.order) > 0 && b.order[0].Equal(price)
	return wasTop || isTop
}

// Top returns the best level on this side, if any.
func (b *bookSide) Top() (PriceLevel, bool) {
	if len(b.order) == 0 {
		return PriceLevel{}, false
	}
	price := b.order[0]
	return PriceLevel{Price: price, Size: b.levels[price.String()]}, true
}

// Levels returns up to n levels from the top, best first.
func (b *bookSide) Levels(n int) []PriceLevel {
	if n <= 0 || n > len(b.order) {
		n = len(b.order)
	}
	out := make([]PriceLevel, n)
	for i := 0; i < n; i++ {
		p := b.order[i]
		out[i] = PriceLevel{Price: p, Size: b.levels[p.String()]}
	}
	return out
}

// Orderbook is the authoritative local view of one symbol's book: two
// ordered sides plus the sequence number of the last applied update.
// Single-writer (the Synchronizer); readers take the mutex only long
// enough to copy the top levels they need.
type Orderbook struct {
	mu       sync.RWMutex
	Symbol   string
	Sequence uint64
	bids     *bookSide
	asks     *bookSide
}

// NewOrderbook creates an empty book for symbol, installed at sequence 0.
// Callers install the real starting sequence via InstallSnapshot.
func NewOrderbook(symbol string) *Orderbook {
	return &Orderbook{
		Symbol: symbol,
		bids:   newBookSide(true),
		asks:   newBookSide(false),
	}
}

// InstallSnapshot replaces the book wholesale at the given sequence. Used on
// first snapshot for a symbol and on resnapshot after desync.
func (ob *Orderbook) InstallSnapshot(sequence uint64, bids, asks []PriceLevel) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.bids = newBookSide(true)
	ob.asks = newBookSide(false)
	for _, l := range bids {
		if l.Size.IsPositive() {
			ob.bids.apply(l.Price, l.Size)
		}
	}
	for _, l := range asks {
		if l.Size.IsPositive() {
			ob.asks.apply(l.Price, l.Size)
		}
	}
	ob.Sequence = sequence
}

// ApplyLevels applies one side's worth of level changes and advances the
// sequence to toSeq. The caller is responsible for having already validated
// the sequence relationship (see applyOrDiscard in internal/orderbook). Returns whether best
// bid or best ask changed.
func (ob *Orderbook) ApplyLevels(toSeq uint64, bids, asks []PriceLevel) (topChanged bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for _, l := range bids {
		if ob.bids.apply(l.Price, l.Size) {
			topChanged = true
		}
	}
	for _, l := range asks {
		if ob.asks.apply(l.Price, l.Size) {
			topChanged = true
		}
	}
	ob.Sequence = toSeq

	return topChanged
}

// TopOfBook returns the best bid and best ask under a short read lock.
func (ob *Orderbook) TopOfBook() (bestBid, bestAsk PriceLevel, haveBid, haveAsk bool, sequence uint64) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bestBid, haveBid = ob.bids.Top()
	bestAsk, haveAsk = ob.asks.Top()
	return bestBid, bestAsk, haveBid, haveAsk, ob.Sequence
}

// SeqNo returns the current sequence under a short read lock.
func (ob *Orderbook) SeqNo() uint64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.Sequence
}

// Snapshot returns up to n levels per side, best first, for point-in-time
// inspection (e.g. the diagnostic HTTP endpoint).
func (ob *Orderbook) Snapshot(n int) (bids, asks []PriceLevel, sequence uint64) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.Levels(n), ob.asks.Levels(n), ob.Sequence
}

// FullOrderbook is the single shared mutable object: a map from symbol to
// Orderbook. Owned by the Synchronizer; other components hold a read-only
// handle and only ever call Get.
type FullOrderbook struct {
	mu    sync.RWMutex
	books map[string]*Orderbook
}

// NewFullOrderbook creates an empty registry.
func NewFullOrderbook() *FullOrderbook {
	return &FullOrderbook{books: make(map[string]*Orderbook)}
}

// GetOrCreate returns the book for symbol, creating an empty one if absent.
// Only the Synchronizer should call this with intent to mutate.
func (f *FullOrderbook) GetOrCreate(symbol string) *Orderbook {
	f.mu.RLock()
	ob, ok := f.books[symbol]
	f.mu.RUnlock()
	if ok {
		return ob
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if ob, ok = f.books[symbol]; ok {
		return ob
	}
	ob = NewOrderbook(symbol)
	f.books[symbol] = ob
	return ob
}

// Get returns the book for symbol without creating it.
func (f *FullOrderbook) Get(symbol string) (*Orderbook, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ob, ok := f.books[symbol]
	return ob, ok
}

// Symbols returns every symbol currently tracked.
func (f *FullOrderbook) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.books))
	for s := range f.books {
		out = append(out, s)
	}
	return out
}

// String renders a price level for logging.
func (l PriceLevel) String() string {
	return fmt.Sprintf("%s@%s", l.Size.String(), l.Price.String())
}
