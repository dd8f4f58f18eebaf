// Package exchangews is the WebSocket half of the transport adapter (spec
// §4.1): a public delta-stream client feeding the Synchronizer and a
// private order-change-stream client feeding the Gatekeeper, both built on
// the same connect/read/reconnect shape.
package exchangews

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// Config holds connection tuning shared by the public and private clients.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	// SubscriptionBatchSize bounds how many symbols are requested per
	// subscribe frame. The first batch is capped at SubscriptionBatchSize-1
	// to leave a slot for a dedicated BTC-USDT subscription.
	SubscriptionBatchSize int
	Logger                *zap.Logger
}

// deltaWireMessage mirrors one raw book-delta frame off the public stream.
type deltaWireMessage struct {
	Symbol  string     `json:"symbol"`
	FromSeq uint64     `json:"fromSeq"`
	ToSeq   uint64     `json:"toSeq"`
	Bids    [][]string `json:"bids"`
	Asks    [][]string `json:"asks"`
}

// PublicClient streams raw order-book deltas for a fixed symbol universe.
type PublicClient struct {
	cfg          Config
	conn         *websocket.Conn
	reconnectMgr *ReconnectManager
	logger       *zap.Logger

	deltaChan chan types.OrderbookEvent

	mu         sync.RWMutex
	subscribed map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connected atomic.Bool
}

// NewPublicClient creates a PublicClient; call Start to connect.
func NewPublicClient(cfg Config) *PublicClient {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &PublicClient{
		cfg:          cfg,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		logger:       cfg.Logger,
		deltaChan:    make(chan types.OrderbookEvent, cfg.MessageBufferSize),
		subscribed:   make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start dials the public stream and begins reading.
func (c *PublicClient) Start() error {
	if err := c.connect(c.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.reconnectLoop()

	return nil
}

func (c *PublicClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error { return nil })

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	activeConnections.WithLabelValues("public").Set(1)
	c.logger.Info("public-stream-connected", zap.String("url", c.cfg.URL))

	return nil
}

// Subscribe requests delta updates for symbols, batched per
// SubscriptionBatchSize with the first-batch carve-out for a dedicated
// BTC-USDT slot.
func (c *PublicClient) Subscribe(symbols []string) error {
	batchSize := c.cfg.SubscriptionBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	remaining := symbols
	first := true
	for len(remaining) > 0 {
		limit := batchSize
		if first {
			limit = batchSize - 1
			first = false
		}
		if limit > len(remaining) {
			limit = len(remaining)
		}
		batch := remaining[:limit]
		remaining = remaining[limit:]

		if err := c.sendSubscribe(batch); err != nil {
			return err
		}
	}
	return nil
}

func (c *PublicClient) sendSubscribe(symbols []string) error {
	c.mu.Lock()
	newSymbols := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !c.subscribed[s] {
			newSymbols = append(newSymbols, s)
			c.subscribed[s] = true
		}
	}
	total := len(c.subscribed)
	conn := c.conn
	c.mu.Unlock()

	if len(newSymbols) == 0 {
		return nil
	}

	msg := map[string]interface{}{
		"symbols":   newSymbols,
		"operation": "subscribe",
		"channel":   "orderbook",
	}
	if err := conn.WriteJSON(msg); err != nil {
		c.mu.Lock()
		for _, s := range newSymbols {
			delete(c.subscribed, s)
		}
		c.mu.Unlock()
		return fmt.Errorf("write subscribe message: %w", err)
	}

	subscriptionCount.Set(float64(total))
	c.logger.Info("public-stream-subscribed", zap.Int("new", len(newSymbols)), zap.Int("total", total))
	return nil
}

func (c *PublicClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("public-stream-read-error", zap.Error(err))
			c.connected.Store(false)
			activeConnections.WithLabelValues("public").Set(0)
			return
		}

		var deltas []deltaWireMessage
		if err := json.Unmarshal(message, &deltas); err != nil {
			c.logger.Debug("public-stream-unparseable-message", zap.Error(err))
			continue
		}

		for _, d := range deltas {
			bids, err := toLevels(d.Bids)
			if err != nil {
				c.logger.Warn("public-stream-bad-level", zap.Error(err), zap.String("symbol", d.Symbol))
				continue
			}
			asks, err := toLevels(d.Asks)
			if err != nil {
				c.logger.Warn("public-stream-bad-level", zap.Error(err), zap.String("symbol", d.Symbol))
				continue
			}

			event := types.OrderbookEvent{
				Kind:    types.EventDelta,
				Symbol:  d.Symbol,
				FromSeq: d.FromSeq,
				ToSeq:   d.ToSeq,
				Bids:    bids,
				Asks:    asks,
			}

			messagesReceivedTotal.WithLabelValues("public").Inc()
			select {
			case c.deltaChan <- event:
			default:
				messagesDroppedTotal.WithLabelValues("public").Inc()
				c.logger.Warn("public-stream-channel-full", zap.String("symbol", d.Symbol))
			}
		}
	}
}

func (c *PublicClient) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if c.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		c.logger.Warn("public-stream-connection-lost")

		if err := c.reconnectMgr.Reconnect(c.ctx, c.connect); err != nil {
			return
		}

		c.mu.Lock()
		symbols := make([]string, 0, len(c.subscribed))
		for s := range c.subscribed {
			symbols = append(symbols, s)
		}
		c.subscribed = make(map[string]bool)
		c.mu.Unlock()

		if err := c.Subscribe(symbols); err != nil {
			c.logger.Error("public-stream-resubscribe-failed", zap.Error(err))
			c.connected.Store(false)
			continue
		}

		c.wg.Add(1)
		go c.readLoop()
	}
}

// Deltas returns the channel of raw book-delta events for the Synchronizer
// to consume.
func (c *PublicClient) Deltas() <-chan types.OrderbookEvent {
	return c.deltaChan
}

// Close tears down the connection and releases resources.
func (c *PublicClient) Close() error {
	c.cancel()

	c.mu.RLock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.RUnlock()

	c.wg.Wait()
	close(c.deltaChan)
	activeConnections.WithLabelValues("public").Set(0)
	return nil
}

func toLevels(raw [][]string) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed level %v", pair)
		}
		price, err := parseDecimal(pair[0])
		if err != nil {
			return nil, err
		}
		size, err := parseDecimal(pair[1])
		if err != nil {
			return nil, err
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}
