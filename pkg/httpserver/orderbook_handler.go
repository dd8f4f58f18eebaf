package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/internal/symbols"
	"github.com/mselser95/triarb/pkg/types"
)

// OrderbookHandler serves point-in-time inspection endpoints over the
// shared FullOrderbook and the monitored symbol/cycle universe.
type OrderbookHandler struct {
	book     *types.FullOrderbook
	universe *symbols.Universe
	logger   *zap.Logger
}

// NewOrderbookHandler creates a new orderbook handler.
func NewOrderbookHandler(book *types.FullOrderbook, universe *symbols.Universe, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{
		book:     book,
		universe: universe,
		logger:   logger,
	}
}

// PriceLevelView is the wire shape for one book level.
type PriceLevelView struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderbookResponse is the HTTP response for a single symbol's book.
type OrderbookResponse struct {
	Symbol   string           `json:"symbol"`
	Sequence uint64           `json:"sequence"`
	Bids     []PriceLevelView `json:"bids"`
	Asks     []PriceLevelView `json:"asks"`
}

// CycleView is the wire shape for one monitored triangular cycle.
type CycleView struct {
	Key        string      `json:"key"`
	Alt        string      `json:"alt"`
	Base       string      `json:"base"`
	Settlement string      `json:"settlement"`
	Direction  string      `json:"direction"`
	LegSymbols [3]string   `json:"leg_symbols"`
	LegSides   [3]string   `json:"leg_sides"`
}

// CyclesResponse lists every monitored cycle.
type CyclesResponse struct {
	Cycles []CycleView `json:"cycles"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /api/orderbook?symbol=<symbol>&depth=<n>.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeError(w, "missing required query parameter: symbol", http.StatusBadRequest)
		return
	}

	depth := 10
	if raw := r.URL.Query().Get("depth"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			depth = n
		}
	}

	h.logger.Debug("orderbook-request-received", zap.String("symbol", symbol))

	ob, ok := h.book.Get(symbol)
	if !ok {
		h.writeError(w, "symbol not tracked", http.StatusNotFound)
		return
	}

	bids, asks, seq := ob.Snapshot(depth)

	response := OrderbookResponse{
		Symbol:   symbol,
		Sequence: seq,
		Bids:     viewLevels(bids),
		Asks:     viewLevels(asks),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCycles handles GET /api/cycles, listing every monitored
// triangular cycle and its constituent legs.
func (h *OrderbookHandler) HandleCycles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cycles := h.universe.Cycles()
	views := make([]CycleView, 0, len(cycles))
	for _, c := range cycles {
		sides := [3]string{c.LegSides[0].String(), c.LegSides[1].String(), c.LegSides[2].String()}
		views = append(views, CycleView{
			Key:        c.Key(),
			Alt:        c.Alt,
			Base:       c.Base,
			Settlement: c.Settlement,
			Direction:  c.Direction.String(),
			LegSymbols: c.LegSymbols,
			LegSides:   sides,
		})
	}

	h.writeJSON(w, http.StatusOK, CyclesResponse{Cycles: views})
}

func viewLevels(levels []types.PriceLevel) []PriceLevelView {
	out := make([]PriceLevelView, len(levels))
	for i, l := range levels {
		out[i] = PriceLevelView{Price: l.Price.String(), Size: l.Size.String()}
	}
	return out
}

func (h *OrderbookHandler) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *OrderbookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
