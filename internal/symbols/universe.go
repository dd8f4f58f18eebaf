// Package symbols loads the tradeable symbol universe at startup, filters
// it down to the monitored triangular set (base BTC, settlement USDT, any
// alt quoted in both), and caches per-symbol trading constraints so the
// Detector never re-fetches them on the hot path.
package symbols

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/cache"
	"github.com/mselser95/triarb/pkg/types"
)

// instrumentFetcher is the subset of pkg/exchangerest.Client the universe
// loader depends on.
type instrumentFetcher interface {
	Instruments(ctx context.Context) ([]types.Symbol, error)
}

// Config configures Load.
type Config struct {
	Client      instrumentFetcher
	Cache       cache.Cache
	CacheTTL    time.Duration
	BaseAsset   string // default "BTC"
	QuoteAssets []string
	Logger      *zap.Logger
}

// Universe is the fixed-at-startup monitored symbol set plus its cycles.
type Universe struct {
	bySymbol map[string]types.Symbol
	cycles   []Cycle
	bySymRev map[string][]int // symbol -> cycle indices touching it

	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Load fetches the full instrument list, filters to symbols quoted in the
// configured BaseAsset (default BTC) or in the settlement asset (the first
// of QuoteAssets that differs from BaseAsset), enumerates monitored cycles,
// and seeds the metadata cache.
func Load(ctx context.Context, cfg Config) (*Universe, error) {
	base := cfg.BaseAsset
	if base == "" {
		base = "BTC"
	}
	quotes := cfg.QuoteAssets
	if len(quotes) == 0 {
		quotes = []string{"BTC", "USDT"}
	}

	all, err := cfg.Client.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instruments: %w", err)
	}

	settlement := ""
	for _, q := range quotes {
		if q != base {
			settlement = q
			break
		}
	}
	if settlement == "" {
		return nil, fmt.Errorf("quote assets %v must include a settlement asset distinct from base %s", quotes, base)
	}

	byBaseAlt := make(map[string]types.Symbol) // alt -> A-BTC symbol
	byQuoteAlt := make(map[string]types.Symbol) // alt -> A-USDT symbol
	bySymbol := make(map[string]types.Symbol)

	for _, s := range all {
		bySymbol[s.ID] = s
		switch {
		case s.Quote == base && s.Base != base:
			byBaseAlt[s.Base] = s
		case s.Quote == settlement && s.Base != base && s.Base != settlement:
			byQuoteAlt[s.Base] = s
		}
	}

	u := &Universe{
		bySymbol: make(map[string]types.Symbol),
		bySymRev: make(map[string][]int),
		cache:    cfg.Cache,
		ttl:      cfg.CacheTTL,
		logger:   cfg.Logger,
	}

	for alt, btcSym := range byBaseAlt {
		usdtSym, ok := byQuoteAlt[alt]
		if !ok {
			continue
		}
		settlementSym, ok := bySymbol[base+"-"+settlement]
		if !ok {
			u.logger.Warn("missing-settlement-pair", zap.String("symbol", base+"-"+settlement))
			continue
		}

		u.bySymbol[btcSym.ID] = btcSym
		u.bySymbol[usdtSym.ID] = usdtSym
		u.bySymbol[settlementSym.ID] = settlementSym

		forwardIdx := len(u.cycles)
		reverseIdx := forwardIdx + 1
		u.cycles = append(u.cycles,
			newCycle(forwardIdx, alt, base, settlement, btcSym.ID, usdtSym.ID, settlementSym.ID, DirectionForward),
			newCycle(reverseIdx, alt, base, settlement, btcSym.ID, usdtSym.ID, settlementSym.ID, DirectionReverse),
		)

		for _, symID := range []string{btcSym.ID, usdtSym.ID, settlementSym.ID} {
			u.bySymRev[symID] = append(u.bySymRev[symID], forwardIdx, reverseIdx)
		}

		for _, sym := range []types.Symbol{btcSym, usdtSym} {
			u.seedCache(sym)
		}
	}

	u.logger.Info("symbol-universe-loaded",
		zap.Int("symbols", len(u.bySymbol)),
		zap.Int("cycles", len(u.cycles)))

	return u, nil
}

func (u *Universe) seedCache(sym types.Symbol) {
	if u.cache == nil {
		return
	}
	u.cache.Set(cacheKey(sym.ID), sym, u.ttl)
}

func cacheKey(symbol string) string {
	return "symbol-meta:" + symbol
}

// Symbol returns the cached trading constraints for symbol, falling back to
// the universe's startup snapshot on a cache miss (the cache is a latency
// optimization, not the source of truth -- the instrument list is fixed for
// the process lifetime).
func (u *Universe) Symbol(symbol string) (types.Symbol, bool) {
	if u.cache != nil {
		if v, ok := u.cache.Get(cacheKey(symbol)); ok {
			if sym, ok := v.(types.Symbol); ok {
				return sym, true
			}
		}
	}
	sym, ok := u.bySymbol[symbol]
	if ok && u.cache != nil {
		u.seedCache(sym)
	}
	return sym, ok
}

// Cycles returns every monitored cycle.
func (u *Universe) Cycles() []Cycle {
	return u.cycles
}

// Symbols returns every symbol id in the monitored universe, for
// subscribing the public WebSocket stream at startup.
func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.bySymbol))
	for id := range u.bySymbol {
		out = append(out, id)
	}
	return out
}

// CyclesTouching returns the cycles that include symbol, via the reverse
// index built once at load time, avoiding a re-scan of every cycle on
// every tick.
func (u *Universe) CyclesTouching(symbol string) []Cycle {
	idxs := u.bySymRev[symbol]
	out := make([]Cycle, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, u.cycles[i])
	}
	return out
}
