package gatekeeper

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testChance(cycleID string, notional string) types.ChanceEvent {
	return types.ChanceEvent{
		CycleID:        cycleID,
		DetectedAt:     time.Now(),
		LegSymbols:     [3]string{"BTC-USDT", "ETH-BTC", "ETH-USDT"},
		ExpectedProfit: dec("5"),
		Notional:       dec(notional),
	}
}

func newTestGatekeeper(t *testing.T) *Gatekeeper {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return New(Config{
		GlobalBudget:    dec("1000"),
		FreshnessWindow: 500 * time.Millisecond,
		Cooldown:        50 * time.Millisecond,
		AckTimeout:      200 * time.Millisecond,
		Logger:          logger,
	})
}

func TestGatekeeperAdmitsFirstChanceForACycle(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	chances <- testChance("alt/BTC/USDT/forward", "100")

	select {
	case order := <-g.Orders():
		if order.CycleID != "alt/BTC/USDT/forward" {
			t.Errorf("unexpected cycle id: %s", order.CycleID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an OrderEvent")
	}
}

func TestGatekeeperRejectsSecondChanceForInFlightCycle(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	chances <- testChance("alt/BTC/USDT/forward", "100")
	<-g.Orders()

	chances <- testChance("alt/BTC/USDT/forward", "100")

	select {
	case order := <-g.Orders():
		t.Fatalf("expected no second OrderEvent while cycle is in flight, got %+v", order)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestGatekeeperRejectsStaleChance(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	stale := testChance("alt/BTC/USDT/forward", "100")
	stale.DetectedAt = time.Now().Add(-time.Second)
	chances <- stale

	select {
	case order := <-g.Orders():
		t.Fatalf("expected stale chance to be rejected, got %+v", order)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestGatekeeperRejectsOverBudgetChance(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	chances <- testChance("alt/BTC/USDT/forward", "900")
	<-g.Orders()

	chances <- testChance("eth/BTC/USDT/forward", "200")

	select {
	case order := <-g.Orders():
		t.Fatalf("expected the second chance to exceed budget, got %+v", order)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestGatekeeperFreesBudgetOnAllLegsTerminal(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	chances <- testChance("alt/BTC/USDT/forward", "100")
	order := <-g.Orders()

	for leg := 0; leg < 3; leg++ {
		changes <- types.OrderChangeEvent{CorrelationID: order.CorrelationID, LegIndex: leg, State: types.OrderDone}
	}

	// Allow reconciliation, then the cool-down, to elapse.
	time.Sleep(100 * time.Millisecond)

	chances <- testChance("alt/BTC/USDT/forward", "100")

	select {
	case reAdmitted := <-g.Orders():
		if reAdmitted.CycleID != "alt/BTC/USDT/forward" {
			t.Errorf("unexpected cycle id: %s", reAdmitted.CycleID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected the cycle to be admissible again after terminal reconciliation and cool-down")
	}
}

func TestGatekeeperForceEvictsOnAckTimeout(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	chances <- testChance("alt/BTC/USDT/forward", "100")
	<-g.Orders()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		_, stillIn := g.inFlight["alt/BTC/USDT/forward"]
		g.mu.Unlock()
		if !stillIn {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected ack-timeout sweep to force-evict the in-flight cycle")
}

func TestGatekeeperQuiesceRejectsNewChances(t *testing.T) {
	g := newTestGatekeeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chances := make(chan types.ChanceEvent, 4)
	changes := make(chan types.OrderChangeEvent, 4)
	go g.Run(ctx, chances, changes)

	g.Quiesce()
	chances <- testChance("alt/BTC/USDT/forward", "100")

	select {
	case order := <-g.Orders():
		t.Fatalf("expected no admission while quiesced, got %+v", order)
	case <-time.After(150 * time.Millisecond):
	}

	g.Resume(map[string]bool{})
	chances <- testChance("alt/BTC/USDT/forward", "100")

	select {
	case <-g.Orders():
	case <-time.After(time.Second):
		t.Fatalf("expected admission to resume after Resume()")
	}
}
