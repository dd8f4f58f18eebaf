package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestOrderbookInstallSnapshotOrdersSides(t *testing.T) {
	ob := NewOrderbook("ETH-BTC")
	ob.InstallSnapshot(10,
		[]PriceLevel{{Price: dec("0.05"), Size: dec("1")}, {Price: dec("0.06"), Size: dec("2")}},
		[]PriceLevel{{Price: dec("0.07"), Size: dec("1")}, {Price: dec("0.065"), Size: dec("2")}},
	)

	bestBid, bestAsk, haveBid, haveAsk, seq := ob.TopOfBook()
	if !haveBid || !haveAsk {
		t.Fatalf("expected both sides populated")
	}
	if !bestBid.Price.Equal(dec("0.06")) {
		t.Errorf("expected best bid 0.06, got %s", bestBid.Price)
	}
	if !bestAsk.Price.Equal(dec("0.065")) {
		t.Errorf("expected best ask 0.065, got %s", bestAsk.Price)
	}
	if seq != 10 {
		t.Errorf("expected sequence 10, got %d", seq)
	}
}

func TestOrderbookApplyLevelsRemovesZeroSize(t *testing.T) {
	ob := NewOrderbook("ETH-BTC")
	ob.InstallSnapshot(1,
		[]PriceLevel{{Price: dec("0.05"), Size: dec("1")}},
		[]PriceLevel{{Price: dec("0.07"), Size: dec("1")}},
	)

	topChanged := ob.ApplyLevels(2,
		[]PriceLevel{{Price: dec("0.05"), Size: dec("0")}},
		nil,
	)
	if !topChanged {
		t.Fatalf("expected top-of-book change when best bid removed")
	}

	_, _, haveBid, _, seq := ob.TopOfBook()
	if haveBid {
		t.Errorf("expected no bids left")
	}
	if seq != 2 {
		t.Errorf("expected sequence 2, got %d", seq)
	}
}

func TestOrderbookApplyLevelsIgnoresNonTopChange(t *testing.T) {
	ob := NewOrderbook("ETH-BTC")
	ob.InstallSnapshot(1,
		[]PriceLevel{{Price: dec("0.06"), Size: dec("1")}, {Price: dec("0.05"), Size: dec("1")}},
		nil,
	)

	topChanged := ob.ApplyLevels(2,
		[]PriceLevel{{Price: dec("0.05"), Size: dec("3")}},
		nil,
	)
	if topChanged {
		t.Errorf("expected no top-of-book change updating a non-top level")
	}
}

func TestFullOrderbookGetOrCreateIsIdempotent(t *testing.T) {
	f := NewFullOrderbook()
	a := f.GetOrCreate("ETH-BTC")
	b := f.GetOrCreate("ETH-BTC")
	if a != b {
		t.Errorf("expected GetOrCreate to return the same book instance")
	}
	if len(f.Symbols()) != 1 {
		t.Errorf("expected exactly one tracked symbol")
	}
}

func TestSymbolRoundSizeDown(t *testing.T) {
	sym := Symbol{BaseIncrement: dec("0.001")}
	got := sym.RoundSizeDown(dec("1.2345"))
	if !got.Equal(dec("1.234")) {
		t.Errorf("expected 1.234, got %s", got)
	}
}
