package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// relayChances taps the Detector's ChanceEvent stream for the audit trail
// before handing each event on to the Gatekeeper. Storage failures are
// logged and the event is still forwarded -- mirrors the teacher's
// best-effort storage write inline in its detector. The write itself is
// synchronous, so a slow store delays the hand-off.
func (a *App) relayChances(ctx context.Context, in <-chan types.ChanceEvent, out chan<- types.ChanceEvent) {
	defer a.wg.Done()
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if err := a.storage.StoreChance(ctx, ev); err != nil {
				a.logger.Warn("store-chance-failed", zap.Error(err), zap.String("cycle-id", ev.CycleID))
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// relayOrders taps the Gatekeeper's admitted OrderEvent stream for the
// audit trail before handing each event on to the Dispatcher.
func (a *App) relayOrders(ctx context.Context, in <-chan types.OrderEvent, out chan<- types.OrderEvent) {
	defer a.wg.Done()
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if err := a.storage.StoreOrder(ctx, ev); err != nil {
				a.logger.Warn("store-order-failed", zap.Error(err), zap.String("correlation-id", ev.CorrelationID))
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// mergeOrderChanges fans the private WS stream's own-order changes and the
// Dispatcher's synthetic cancel-on-rejection events into one channel for the
// Gatekeeper's reconciliation loop to consume.
func mergeOrderChanges(ctx context.Context, a, b <-chan types.OrderChangeEvent) <-chan types.OrderChangeEvent {
	out := make(chan types.OrderChangeEvent, 128)

	go func() {
		defer close(out)
		for a != nil || b != nil {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-a:
				if !ok {
					a = nil
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case ev, ok := <-b:
				if !ok {
					b = nil
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
