package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

type fakeStorage struct {
	mu      sync.Mutex
	chances []types.ChanceEvent
	orders  []types.OrderEvent
	failAll bool
}

func (f *fakeStorage) StoreChance(_ context.Context, ev types.ChanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store failed")
	}
	f.chances = append(f.chances, ev)
	return nil
}

func (f *fakeStorage) StoreOrder(_ context.Context, ev types.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store failed")
	}
	f.orders = append(f.orders, ev)
	return nil
}

func (f *fakeStorage) Close() error { return nil }

func newTestApp(s *fakeStorage) *App {
	return &App{logger: zap.NewNop(), storage: s}
}

func TestRelayChances_ForwardsAndStores(t *testing.T) {
	fs := &fakeStorage{}
	a := newTestApp(fs)

	in := make(chan types.ChanceEvent, 1)
	out := make(chan types.ChanceEvent, 1)

	a.wg.Add(1)
	go a.relayChances(context.Background(), in, out)

	ev := types.ChanceEvent{CycleID: "btc-eth-usdt-fwd"}
	in <- ev
	close(in)

	select {
	case got := <-out:
		if got.CycleID != ev.CycleID {
			t.Fatalf("expected cycle id %q, got %q", ev.CycleID, got.CycleID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed chance")
	}

	a.wg.Wait()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.chances) != 1 {
		t.Fatalf("expected 1 stored chance, got %d", len(fs.chances))
	}
}

func TestRelayChances_StorageFailureStillForwards(t *testing.T) {
	fs := &fakeStorage{failAll: true}
	a := newTestApp(fs)

	in := make(chan types.ChanceEvent, 1)
	out := make(chan types.ChanceEvent, 1)

	a.wg.Add(1)
	go a.relayChances(context.Background(), in, out)

	in <- types.ChanceEvent{CycleID: "x"}
	close(in)

	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("expected event forwarded despite storage failure")
	}

	a.wg.Wait()
}

func TestRelayOrders_ForwardsAndStores(t *testing.T) {
	fs := &fakeStorage{}
	a := newTestApp(fs)

	in := make(chan types.OrderEvent, 1)
	out := make(chan types.OrderEvent, 1)

	a.wg.Add(1)
	go a.relayOrders(context.Background(), in, out)

	ev := types.OrderEvent{CorrelationID: "corr-1"}
	in <- ev
	close(in)

	select {
	case got := <-out:
		if got.CorrelationID != ev.CorrelationID {
			t.Fatalf("expected correlation id %q, got %q", ev.CorrelationID, got.CorrelationID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed order")
	}

	a.wg.Wait()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.orders) != 1 {
		t.Fatalf("expected 1 stored order, got %d", len(fs.orders))
	}
}

func TestRelay_ClosesOutputWhenInputCloses(t *testing.T) {
	fs := &fakeStorage{}
	a := newTestApp(fs)

	in := make(chan types.ChanceEvent)
	out := make(chan types.ChanceEvent)

	a.wg.Add(1)
	go a.relayChances(context.Background(), in, out)

	close(in)

	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected output channel to be closed, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for output channel to close")
	}

	a.wg.Wait()
}

func TestRelay_ExitsOnContextCancel(t *testing.T) {
	fs := &fakeStorage{}
	a := newTestApp(fs)

	in := make(chan types.ChanceEvent)
	out := make(chan types.ChanceEvent)

	ctx, cancel := context.WithCancel(context.Background())

	a.wg.Add(1)
	go a.relayChances(ctx, in, out)

	cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relayChances did not exit after context cancel")
	}
}

func TestMergeOrderChanges_MergesBothSources(t *testing.T) {
	a := make(chan types.OrderChangeEvent, 1)
	b := make(chan types.OrderChangeEvent, 1)

	out := mergeOrderChanges(context.Background(), a, b)

	a <- types.OrderChangeEvent{CorrelationID: "from-a"}
	b <- types.OrderChangeEvent{CorrelationID: "from-b"}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-out:
			seen[ev.CorrelationID] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for merged event")
		}
	}

	if !seen["from-a"] || !seen["from-b"] {
		t.Fatalf("expected events from both sources, got %v", seen)
	}
}

func TestMergeOrderChanges_ClosesWhenBothSourcesClose(t *testing.T) {
	a := make(chan types.OrderChangeEvent)
	b := make(chan types.OrderChangeEvent)

	out := mergeOrderChanges(context.Background(), a, b)

	close(a)
	close(b)

	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected merged channel to close, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for merged channel to close")
	}
}
