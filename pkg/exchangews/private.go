package exchangews

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// orderChangeWireMessage mirrors one private order-change frame. The
// exchange echoes back the per-leg client order id the Dispatcher placed
// the order under (types.LegCorrelationID's "root-N" shape), not the root
// correlation id or the leg index separately.
type orderChangeWireMessage struct {
	ClientOrderID string `json:"clientOrderId"`
	State         string `json:"state"`
	FilledSize    string `json:"filledSize"`
	RemainingSize string `json:"remainingSize"`
}

// PrivateClient streams the account's own order-change events. On
// disconnect the caller is expected to quiesce the Gatekeeper and rebuild
// its in-flight set from a REST open-orders query before resuming --
// Disconnected() reports that transition.
type PrivateClient struct {
	cfg          Config
	conn         *websocket.Conn
	reconnectMgr *ReconnectManager
	logger       *zap.Logger

	changeChan       chan types.OrderChangeEvent
	disconnectedChan chan struct{}

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connected atomic.Bool
}

// NewPrivateClient creates a PrivateClient; call Start to connect.
func NewPrivateClient(cfg Config) *PrivateClient {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &PrivateClient{
		cfg:              cfg,
		reconnectMgr:     NewReconnectManager(reconnectCfg, cfg.Logger),
		logger:           cfg.Logger,
		changeChan:       make(chan types.OrderChangeEvent, cfg.MessageBufferSize),
		disconnectedChan: make(chan struct{}, 1),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start dials the private stream and begins reading.
func (c *PrivateClient) Start() error {
	if err := c.connect(c.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.reconnectLoop()

	return nil
}

func (c *PrivateClient) connect(ctx context.Context) error {
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
	activeConnections.WithLabelValues("private").Set(1)
	c.logger.Info("private-stream-connected", zap.String("url", c.cfg.URL))

	return nil
}

func (c *PrivateClient) readLoop() {
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
			c.logger.Warn("private-stream-read-error", zap.Error(err))
			c.connected.Store(false)
			activeConnections.WithLabelValues("private").Set(0)
			c.notifyDisconnected()
			return
		}

		var changes []orderChangeWireMessage
		if err := json.Unmarshal(message, &changes); err != nil {
			c.logger.Debug("private-stream-unparseable-message", zap.Error(err))
			continue
		}

		for _, raw := range changes {
			event, err := toOrderChangeEvent(raw)
			if err != nil {
				c.logger.Warn("private-stream-bad-message", zap.Error(err))
				continue
			}

			messagesReceivedTotal.WithLabelValues("private").Inc()
			select {
			case c.changeChan <- event:
			default:
				messagesDroppedTotal.WithLabelValues("private").Inc()
				c.logger.Warn("private-stream-channel-full", zap.String("correlation-id", event.CorrelationID))
			}
		}
	}
}

func toOrderChangeEvent(raw orderChangeWireMessage) (types.OrderChangeEvent, error) {
	root, legIndex, err := parseLegClientOrderID(raw.ClientOrderID)
	if err != nil {
		return types.OrderChangeEvent{}, err
	}

	filled, err := parseDecimal(raw.FilledSize)
	if err != nil {
		return types.OrderChangeEvent{}, fmt.Errorf("filled size: %w", err)
	}
	remaining, err := parseDecimal(raw.RemainingSize)
	if err != nil {
		return types.OrderChangeEvent{}, fmt.Errorf("remaining size: %w", err)
	}

	var state types.OrderState
	switch raw.State {
	case "open":
		state = types.OrderOpen
	case "match":
		state = types.OrderMatch
	case "done":
		state = types.OrderDone
	case "canceled":
		state = types.OrderCanceled
	default:
		return types.OrderChangeEvent{}, fmt.Errorf("unknown order state %q", raw.State)
	}

	return types.OrderChangeEvent{
		CorrelationID: root,
		LegIndex:      legIndex,
		State:         state,
		FilledSize:    filled,
		RemainingSize: remaining,
		At:            time.Now(),
	}, nil
}

// parseLegClientOrderID splits a "root-N" per-leg client order id back into
// the Gatekeeper's root correlation id and leg index. The root itself is a
// UUID and so contains hyphens of its own, so only the final "-0"/"-1"/"-2"
// segment is treated as the leg suffix.
func parseLegClientOrderID(clientOrderID string) (string, int, error) {
	idx := strings.LastIndex(clientOrderID, "-")
	if idx < 0 || idx == len(clientOrderID)-1 {
		return "", 0, fmt.Errorf("client order id %q has no leg suffix", clientOrderID)
	}

	legIndex, err := strconv.Atoi(clientOrderID[idx+1:])
	if err != nil || legIndex < 0 || legIndex > 2 {
		return "", 0, fmt.Errorf("client order id %q has an invalid leg suffix", clientOrderID)
	}

	return clientOrderID[:idx], legIndex, nil
}

func (c *PrivateClient) notifyDisconnected() {
	select {
	case c.disconnectedChan <- struct{}{}:
	default:
	}
}

func (c *PrivateClient) reconnectLoop() {
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

		c.logger.Warn("private-stream-connection-lost")

		if err := c.reconnectMgr.Reconnect(c.ctx, c.connect); err != nil {
			return
		}

		c.wg.Add(1)
		go c.readLoop()
	}
}

// Changes returns the channel of own-order change events for the
// Gatekeeper/Dispatcher reconciliation loop to consume.
func (c *PrivateClient) Changes() <-chan types.OrderChangeEvent {
	return c.changeChan
}

// Disconnected signals once per disconnect/reconnect cycle, letting the
// supervisor trigger Gatekeeper.Quiesce() + an open-orders resync.
func (c *PrivateClient) Disconnected() <-chan struct{} {
	return c.disconnectedChan
}

// Close tears down the connection and releases resources.
func (c *PrivateClient) Close() error {
	c.cancel()

	c.mu.RLock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.RUnlock()

	c.wg.Wait()
	close(c.changeChan)
	activeConnections.WithLabelValues("private").Set(0)
	return nil
}
