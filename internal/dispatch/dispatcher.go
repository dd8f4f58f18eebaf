// Package dispatch implements the Dispatcher: for each admitted OrderEvent
// it places all three legs concurrently, retries a transient transport
// error a bounded number of times, and synthesizes a canceled
// OrderChangeEvent for any leg the exchange rejects outright so the
// Gatekeeper can reconcile without waiting on the private stream.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/exchangerest"
	"github.com/mselser95/triarb/pkg/types"
)

// OrderPlacer is the subset of pkg/exchangerest.Client the Dispatcher
// depends on.
type OrderPlacer interface {
	PlaceLimitOrder(ctx context.Context, clientOrderID, symbol string, side types.Side, price, size decimal.Decimal) (*exchangerest.OrderAck, error)
}

// Config configures a Dispatcher.
type Config struct {
	Placer OrderPlacer
	// RetryCount bounds how many times a transient transport error is
	// retried per leg. Zero or less selects the default of 2.
	RetryCount int
	// RetryBackoff is the fixed delay between retries.
	RetryBackoff time.Duration

	OutputBufferSize int
	Logger           *zap.Logger

	// OrderCounter, when set, is incremented once per admitted OrderEvent
	// dispatched -- the monitor registry's view of this stage's input edge.
	OrderCounter *types.Counter
}

// Dispatcher is the pipeline's fourth and final stage.
type Dispatcher struct {
	placer       OrderPlacer
	retryCount   int
	retryBackoff time.Duration

	changeChan   chan types.OrderChangeEvent
	logger       *zap.Logger
	orderCounter *types.Counter
}

// New creates a Dispatcher. Call Run to begin consuming admitted orders.
func New(cfg Config) *Dispatcher {
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 2
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	bufSize := cfg.OutputBufferSize
	if bufSize <= 0 {
		bufSize = 128
	}

	return &Dispatcher{
		placer:       cfg.Placer,
		retryCount:   retryCount,
		retryBackoff: backoff,
		changeChan:   make(chan types.OrderChangeEvent, bufSize),
		logger:       cfg.Logger,
		orderCounter: cfg.OrderCounter,
	}
}

// Run consumes admitted orders until ctx is canceled or orders closes. Each
// OrderEvent is dispatched in its own goroutine so a slow leg on one cycle
// never delays the next admitted cycle.
func (d *Dispatcher) Run(ctx context.Context, orders <-chan types.OrderEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-orders:
			if !ok {
				return
			}
			if d.orderCounter != nil {
				d.orderCounter.Inc()
			}
			go d.dispatchOrder(ctx, order)
		}
	}
}

// dispatchOrder places all three legs concurrently; the Dispatcher does
// not sequence legs, matching exchange's assumption that concurrent
// submission latency dominates any benefit from ordering them.
func (d *Dispatcher) dispatchOrder(ctx context.Context, order types.OrderEvent) {
	for leg := 0; leg < 3; leg++ {
		go d.dispatchLeg(ctx, order, leg)
	}
}

func (d *Dispatcher) dispatchLeg(ctx context.Context, order types.OrderEvent, legIndex int) {
	start := time.Now()
	defer func() { legPlacementDuration.Observe(time.Since(start).Seconds()) }()

	clientID := types.LegCorrelationID(order.CorrelationID, legIndex)
	symbol := order.LegSymbols[legIndex]
	side := order.LegSides[legIndex]
	price := order.LegPrices[legIndex]
	size := order.LegSizes[legIndex]

	attempts := 0
	for {
		ack, err := d.placer.PlaceLimitOrder(ctx, clientID, symbol, side, price, size)
		if err != nil {
			if isTransientError(err) && attempts < d.retryCount {
				attempts++
				legRetriesTotal.Inc()
				select {
				case <-time.After(d.retryBackoff):
					continue
				case <-ctx.Done():
					return
				}
			}
			d.logger.Warn("leg-placement-failed",
				zap.String("client_order_id", clientID), zap.Int("leg", legIndex), zap.Error(err))
			legsRejectedTotal.Inc()
			d.emitSyntheticCancel(order.CorrelationID, legIndex)
			return
		}

		if !ack.Accepted {
			d.logger.Warn("leg-rejected",
				zap.String("client_order_id", clientID), zap.Int("leg", legIndex), zap.String("reason", ack.RejectReason))
			legsRejectedTotal.Inc()
			d.emitSyntheticCancel(order.CorrelationID, legIndex)
			return
		}

		legsPlacedTotal.Inc()
		return
	}
}

// emitSyntheticCancel lets the Gatekeeper reconcile a rejected leg without
// waiting on the private order-change stream, which will never deliver a
// terminal state for an order the exchange never opened.
func (d *Dispatcher) emitSyntheticCancel(correlationID string, legIndex int) {
	ev := types.OrderChangeEvent{
		CorrelationID: correlationID,
		LegIndex:      legIndex,
		State:         types.OrderCanceled,
		At:            time.Now(),
	}
	select {
	case d.changeChan <- ev:
	default:
		changeChannelDroppedTotal.Inc()
		d.logger.Warn("change-channel-full", zap.String("correlation_id", correlationID))
	}
}

// isTransientError classifies a leg placement error as worth retrying
// (network/transport level) versus a hard rejection the exchange will
// never accept on resubmission.
func isTransientError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"connection refused", "timeout", "dial", "eof", "network", "do request"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Changes returns the outbound channel the Gatekeeper consumes alongside
// the private stream's real order-change events.
func (d *Dispatcher) Changes() <-chan types.OrderChangeEvent {
	return d.changeChan
}
