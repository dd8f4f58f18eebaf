package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind discriminates the two variants an OrderbookEvent can carry. Go
// has no native sum type, so the event is a single struct with a Kind tag
// and fields for both shapes, following the same "one struct, one kind
// enum" pattern the rest of this pipeline uses for its event types.
type EventKind int

const (
	// EventDelta is a raw sequence-numbered level-change batch as received
	// from the exchange, before or after Synchronizer reconciliation.
	EventDelta EventKind = iota
	// EventTopOfBookChanged fires after the Synchronizer applies a delta
	// (or snapshot) that moved the best bid and/or best ask.
	EventTopOfBookChanged
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventTopOfBookChanged:
		return "top-of-book-changed"
	default:
		return "unknown"
	}
}

// OrderbookEvent is published on the Synchronizer's two outbound channels.
// Delta events carry FromSeq/ToSeq and per-side level changes;
// TopOfBookChanged events carry only the resulting best bid/ask and the
// sequence at which they became current. Fields belonging to the other
// variant are left zero-valued.
type OrderbookEvent struct {
	Kind   EventKind
	Symbol string

	// EventDelta fields.
	FromSeq uint64
	ToSeq   uint64
	Bids    []PriceLevel
	Asks    []PriceLevel

	// EventTopOfBookChanged fields.
	BestBid  PriceLevel
	BestAsk  PriceLevel
	Sequence uint64
}

// ChanceEvent is a candidate triangular arbitrage opportunity emitted by
// the Detector. LegPrices/LegSizes are ordered root->leg1->leg2->leg3 per
// the cycle definition; LegSequences records the top-of-book sequence
// number each leg's price was read at, so the Gatekeeper and any audit
// trail can tell how stale each leg was at detection time.
type ChanceEvent struct {
	CycleID        string
	DetectedAt      time.Time
	LegSymbols     [3]string
	LegSides       [3]Side
	LegPrices      [3]decimal.Decimal
	LegSizes       [3]decimal.Decimal
	LegSequences   [3]uint64
	ExpectedProfit decimal.Decimal
	// Notional is the opportunity's root-leg notional value in quote
	// units; the Gatekeeper compares it against the remaining in-flight
	// budget before admitting. Derived, not part of the wire shape in
	// the wire format, but required for the Gatekeeper's budget check.
	Notional decimal.Decimal
}

// OrderEvent instructs the Dispatcher to place three correlated orders.
// CommitAt records when the Gatekeeper admitted the chance, which the
// Dispatcher uses to measure how long admission-to-placement took.
type OrderEvent struct {
	CorrelationID string
	// CycleID links this placement back to the ChanceEvent that produced
	// it, for the Gatekeeper's in-flight-by-cycle bookkeeping.
	CycleID    string
	CommitAt   time.Time
	LegSymbols [3]string
	LegSides   [3]Side
	LegPrices  [3]decimal.Decimal
	LegSizes   [3]decimal.Decimal
}

// LegCorrelationID returns the per-leg client order id: the root
// correlation id suffixed "-0", "-1", "-2".
func LegCorrelationID(root string, legIndex int) string {
	suffix := [3]string{"-0", "-1", "-2"}[legIndex]
	return root + suffix
}

// OrderState is the lifecycle state of one order leg.
type OrderState int

const (
	OrderOpen OrderState = iota
	OrderMatch
	OrderDone
	OrderCanceled
)

func (s OrderState) String() string {
	switch s {
	case OrderOpen:
		return "open"
	case OrderMatch:
		return "match"
	case OrderDone:
		return "done"
	case OrderCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// OrderChangeEvent reports a fill or lifecycle transition for one leg of a
// previously dispatched OrderEvent.
type OrderChangeEvent struct {
	CorrelationID string
	LegIndex      int
	State         OrderState
	FilledSize    decimal.Decimal
	RemainingSize decimal.Decimal
	At            time.Time
}
