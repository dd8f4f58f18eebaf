package types

import "github.com/shopspring/decimal"

// Symbol identifies one tradeable exchange pair and its trading constraints.
// Immutable after construction: the Synchronizer, Detector and Dispatcher all
// hold copies freely without synchronization.
type Symbol struct {
	ID             string // exchange-native pair identifier, e.g. "ETH-BTC"
	Base           string
	Quote          string
	MinLotSize     decimal.Decimal // minimum order size, in base units
	PriceIncrement decimal.Decimal // smallest price tick
	BaseIncrement  decimal.Decimal // smallest size increment
	MinNotional    decimal.Decimal // minimum order value in quote units
}

// RoundSizeDown truncates size to the symbol's base increment.
func (s Symbol) RoundSizeDown(size decimal.Decimal) decimal.Decimal {
	if s.BaseIncrement.IsZero() {
		return size
	}
	units := size.Div(s.BaseIncrement).Floor()
	return units.Mul(s.BaseIncrement)
}

// Side is which side of a book a price level or order leg sits on.
type Side int

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side. Buying crosses the ask, selling hits the bid.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}
