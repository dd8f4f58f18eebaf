package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/mselser95/triarb/internal/symbols"
	"github.com/mselser95/triarb/pkg/types"
)

// legQuote is one leg's current top-of-book price, size and the sequence
// it was read at.
type legQuote struct {
	Price    decimal.Decimal
	Size     decimal.Decimal
	Sequence uint64
}

// evalResult is the outcome of evaluating one cycle against its current
// top-of-book quotes.
type evalResult struct {
	ok             bool
	legSizes       [3]decimal.Decimal
	expectedProfit decimal.Decimal
	notional       decimal.Decimal
}

// evaluateCycle implements the triangular profit formula and sizing rule
// for one cycle, given its three current leg quotes, in leg order.
func evaluateCycle(cycle symbols.Cycle, quotes [3]legQuote, sym [3]types.Symbol, feeRate, thresholdBps, notionalCeiling decimal.Decimal) evalResult {
	for _, q := range quotes {
		if q.Price.IsZero() || q.Size.IsZero() {
			return evalResult{}
		}
	}

	notional := cappedNotional(cycle.Direction, quotes, notionalCeiling)
	if notional.IsZero() || notional.IsNegative() {
		return evalResult{}
	}

	legSizes, receivedSettlement := walkCycle(cycle.Direction, quotes, feeRate, notional)

	for i, sz := range legSizes {
		rounded := sym[i].RoundSizeDown(sz)
		if rounded.LessThan(sym[i].MinLotSize) || rounded.IsZero() {
			chancesSkippedTotal.WithLabelValues("below-min-lot").Inc()
			return evalResult{}
		}
		notionalAtLeg := rounded.Mul(quotes[i].Price)
		if notionalAtLeg.LessThan(sym[i].MinNotional) {
			chancesSkippedTotal.WithLabelValues("below-min-notional").Inc()
			return evalResult{}
		}
		legSizes[i] = rounded
	}

	profit := receivedSettlement.Sub(notional)
	thresholdAbs := notional.Mul(thresholdBps).Div(decimal.NewFromInt(10000))
	if profit.LessThanOrEqual(thresholdAbs) {
		chancesSkippedTotal.WithLabelValues("below-threshold").Inc()
		return evalResult{}
	}

	return evalResult{
		ok:             true,
		legSizes:       legSizes,
		expectedProfit: profit,
		notional:       notional,
	}
}

// cappedNotional is the minimum across legs of (level size * level price,
// converted to settlement units by chaining through the other legs'
// prices), capped at the configured per-cycle ceiling. Leg 1 is always the
// alt/base pair (priced in base units), so converting its notional to
// settlement units requires the base/settlement price -- quotes[0] in a
// forward cycle, quotes[2] in a reverse one (see symbols.newCycle's
// LegSymbols ordering).
func cappedNotional(dir symbols.Direction, quotes [3]legQuote, ceiling decimal.Decimal) decimal.Decimal {
	baseSettlementPrice := quotes[0].Price
	if dir == symbols.DirectionReverse {
		baseSettlementPrice = quotes[2].Price
	}

	leg0Cap := quotes[0].Size.Mul(quotes[0].Price)
	leg1Cap := quotes[1].Size.Mul(quotes[1].Price).Mul(baseSettlementPrice)
	leg2Cap := quotes[2].Size.Mul(quotes[2].Price)

	bound := leg0Cap
	if leg1Cap.LessThan(bound) {
		bound = leg1Cap
	}
	if leg2Cap.LessThan(bound) {
		bound = leg2Cap
	}
	if !ceiling.IsZero() && ceiling.LessThan(bound) {
		bound = ceiling
	}
	return bound
}

// walkCycle converts a starting settlement-unit notional through the
// cycle's three legs (buy/divide, sell/multiply, per direction) and
// returns the size transacted at each leg plus the settlement received
// back at the end.
func walkCycle(dir symbols.Direction, quotes [3]legQuote, feeRate, notional decimal.Decimal) ([3]decimal.Decimal, decimal.Decimal) {
	one := decimal.NewFromInt(1)
	buyFactor := one.Add(feeRate)
	sellFactor := one.Sub(feeRate)

	var legSizes [3]decimal.Decimal
	var amount decimal.Decimal

	if dir == symbols.DirectionForward {
		// leg0: buy BTC with USDT (size in BTC)
		amount = notional.Div(quotes[0].Price).Div(buyFactor)
		legSizes[0] = amount
		// leg1: buy alt with BTC (size in alt)
		amount = amount.Div(quotes[1].Price).Div(buyFactor)
		legSizes[1] = amount
		// leg2: sell alt for USDT (size in alt)
		legSizes[2] = amount
		received := amount.Mul(quotes[2].Price).Mul(sellFactor)
		return legSizes, received
	}

	// Reverse: leg0 buy alt with USDT (size in alt)
	amount = notional.Div(quotes[0].Price).Div(buyFactor)
	legSizes[0] = amount
	// leg1: sell alt for BTC (size in alt)
	legSizes[1] = amount
	btc := amount.Mul(quotes[1].Price).Mul(sellFactor)
	// leg2: sell BTC for USDT (size in BTC)
	legSizes[2] = btc
	received := btc.Mul(quotes[2].Price).Mul(sellFactor)
	return legSizes, received
}
