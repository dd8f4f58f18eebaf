// Package exchangerest is the REST half of the transport adapter: order-book
// snapshots, limit-order placement, and the open-orders query the
// Gatekeeper uses to resync its in-flight set after a private-stream
// reconnect. The core pipeline depends only on the small interfaces it
// declares itself (orderbook.SnapshotFetcher, dispatch.OrderPlacer, ...),
// which Client satisfies; everything here is external-collaborator plumbing.
package exchangerest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// Credentials is the key/secret/passphrase triple required to be
// handed to the core at startup.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Client is a signed REST client for one exchange account.
type Client struct {
	baseURL     string
	creds       Credentials
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a Client against baseURL (e.g. "https://api.exchange.example").
func NewClient(baseURL string, creds Credentials, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// snapshotResponse mirrors the exchange's wire shape:
// {sequence, bids:[[price,size]…], asks:[[price,size]…]}.
type snapshotResponse struct {
	Sequence uint64     `json:"sequence"`
	Bids     [][]string `json:"bids"`
	Asks     [][]string `json:"asks"`
}

// Snapshot fetches the current book for symbol, truncated to depth levels
// per side, bounded by a configured depth parameter.
func (c *Client) Snapshot(ctx context.Context, symbol string, depth int) (sequence uint64, bids, asks []types.PriceLevel, err error) {
	path := fmt.Sprintf("/api/v1/orderbook/%s", symbol)
	query := fmt.Sprintf("?depth=%s", strconv.Itoa(depth))

	var snap snapshotResponse
	if err = c.doSigned(ctx, http.MethodGet, path+query, nil, &snap); err != nil {
		return 0, nil, nil, fmt.Errorf("fetch snapshot for %s: %w", symbol, err)
	}

	bids, err = toLevels(snap.Bids)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("parse bid levels for %s: %w", symbol, err)
	}
	asks, err = toLevels(snap.Asks)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("parse ask levels for %s: %w", symbol, err)
	}

	return snap.Sequence, bids, asks, nil
}

func toLevels(raw [][]string) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed level %v", pair)
		}
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", pair[0], err)
		}
		size, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", pair[1], err)
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

// instrumentResponse mirrors one entry of the exchange's instruments list.
type instrumentResponse struct {
	Symbol         string `json:"symbol"`
	Base           string `json:"base"`
	Quote          string `json:"quote"`
	MinLotSize     string `json:"minLotSize"`
	PriceIncrement string `json:"priceIncrement"`
	BaseIncrement  string `json:"baseIncrement"`
	MinNotional    string `json:"minNotional"`
}

// Instruments fetches the full tradeable symbol universe with its trading
// constraints, used once at startup by internal/symbols to build the
// monitored cycle set and to seed the metadata cache.
func (c *Client) Instruments(ctx context.Context) ([]types.Symbol, error) {
	var raw []instrumentResponse
	if err := c.doSigned(ctx, http.MethodGet, "/api/v1/instruments", nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}

	out := make([]types.Symbol, 0, len(raw))
	for _, r := range raw {
		sym, err := toSymbol(r)
		if err != nil {
			return nil, fmt.Errorf("parse instrument %s: %w", r.Symbol, err)
		}
		out = append(out, sym)
	}
	return out, nil
}

func toSymbol(r instrumentResponse) (types.Symbol, error) {
	minLot, err := decimal.NewFromString(r.MinLotSize)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("minLotSize: %w", err)
	}
	priceInc, err := decimal.NewFromString(r.PriceIncrement)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("priceIncrement: %w", err)
	}
	baseInc, err := decimal.NewFromString(r.BaseIncrement)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("baseIncrement: %w", err)
	}
	minNotional, err := decimal.NewFromString(r.MinNotional)
	if err != nil {
		return types.Symbol{}, fmt.Errorf("minNotional: %w", err)
	}

	return types.Symbol{
		ID:             r.Symbol,
		Base:           r.Base,
		Quote:          r.Quote,
		MinLotSize:     minLot,
		PriceIncrement: priceInc,
		BaseIncrement:  baseInc,
		MinNotional:    minNotional,
	}, nil
}

// LimitOrderRequest is the outbound wire shape for placing an order:
// (client_order_id, symbol, side, price, size).
type LimitOrderRequest struct {
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	Size          string `json:"size"`
}

// OrderAck is the exchange's synchronous response to order placement.
// Terminal fills arrive asynchronously over the private WS stream
// (pkg/exchangews); this ack only confirms submission or surfaces a
// rejection the Dispatcher must classify.
type OrderAck struct {
	ClientOrderID string `json:"clientOrderId"`
	Accepted      bool   `json:"accepted"`
	RejectReason  string `json:"rejectReason,omitempty"`
}

// PlaceLimitOrder submits one taker-crossed limit order leg.
func (c *Client) PlaceLimitOrder(ctx context.Context, clientOrderID, symbol string, side types.Side, price, size decimal.Decimal) (*OrderAck, error) {
	body := LimitOrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Side:          side.String(),
		Price:         price.String(),
		Size:          size.String(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	var ack OrderAck
	if err := c.doSigned(ctx, http.MethodPost, "/api/v1/orders", payload, &ack); err != nil {
		return nil, fmt.Errorf("place order %s: %w", clientOrderID, err)
	}
	return &ack, nil
}

// OpenOrder describes one still-live order as returned by the reconciliation
// query the Gatekeeper uses on Resume after a reconnect.
type OpenOrder struct {
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	RemainingSize decimal.Decimal `json:"remainingSize"`
}

// OpenOrders returns every order the account currently has resting on the
// book, used to rebuild the Gatekeeper's in-flight set after a private
// stream reconnect.
func (c *Client) OpenOrders(ctx context.Context) ([]OpenOrder, error) {
	var orders []OpenOrder
	if err := c.doSigned(ctx, http.MethodGet, "/api/v1/orders/open", nil, &orders); err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	return orders, nil
}

// doSigned performs an HMAC-SHA256 signed request and decodes the JSON
// response body into out (if out is non-nil). The signing shape --
// timestamp+method+path+body hashed with the account secret, sent as
// headers alongside the API key and passphrase -- matches the exchange
// account model.
func (c *Client) doSigned(ctx context.Context, method, path string, body []byte, out interface{}) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signaturePayload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(c.creds.Secret)
	if err != nil {
		return fmt.Errorf("decode secret: %w", err)
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.creds.APIKey)
	req.Header.Set("X-SIGNATURE", signature)
	req.Header.Set("X-TIMESTAMP", timestamp)
	req.Header.Set("X-PASSPHRASE", c.creds.Passphrase)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	restRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	if err != nil {
		restRequestsTotal.WithLabelValues(path, method, "transport-error").Inc()
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		restRequestsTotal.WithLabelValues(path, method, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn("rest-request-rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	restRequestsTotal.WithLabelValues(path, method, "200").Inc()

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
