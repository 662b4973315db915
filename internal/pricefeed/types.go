package pricefeed

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

var (
	ErrUnsupportedPair = errors.New("pricefeed: unsupported currency pair")
	ErrNoPrice         = errors.New("pricefeed: no price for currency")
)

// USDINR is the fixed fiat exchange rate.
var USDINR = decimal.RequireFromString("83.12")

// CoinIDs maps crypto wallet currencies to CoinGecko coin ids.
var CoinIDs = map[ledger.Currency]string{
	ledger.BTC:  "bitcoin",
	ledger.ETH:  "ethereum",
	ledger.USDT: "tether",
}

// CoinPrice mirrors one entry of CoinGecko's /simple/price response.
type CoinPrice struct {
	USD          float64 `json:"usd"`
	INR          float64 `json:"inr"`
	USD24hChange float64 `json:"usd_24h_change"`
	USDMarketCap float64 `json:"usd_market_cap"`
	USD24hVol    float64 `json:"usd_24h_vol"`
}

type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceStale    Source = "stale"
	SourceStored   Source = "stored"
	SourceFallback Source = "fallback"
)

// Snapshot is a set of coin prices keyed by coin id.
type Snapshot struct {
	Coins     map[string]CoinPrice `json:"coins"`
	Source    Source               `json:"source"`
	FetchedAt time.Time            `json:"fetched_at"`
}

func (s *Snapshot) withSource(src Source) Snapshot {
	out := *s
	out.Source = src
	return out
}

// Quote is the persisted form of a coin price.
type Quote struct {
	Symbol      ledger.Currency `json:"symbol"`
	USD         decimal.Decimal `json:"usd"`
	INR         decimal.Decimal `json:"inr"`
	Change24h   decimal.Decimal `json:"change_24h"`
	MarketCap   decimal.Decimal `json:"market_cap"`
	Volume24h   decimal.Decimal `json:"volume_24h"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Cache shares snapshots between processes.
type Cache interface {
	// Load returns nil without error on a miss.
	Load(ctx context.Context) (*Snapshot, error)
	Store(ctx context.Context, snap *Snapshot, ttl time.Duration) error
}

// Recorder persists live quotes and serves them back when the API is down.
type Recorder interface {
	RecordQuotes(ctx context.Context, quotes []Quote) error
	LatestQuotes(ctx context.Context) ([]Quote, error)
}

// QuotesFromSnapshot converts a snapshot into persistable quotes.
func QuotesFromSnapshot(s *Snapshot) []Quote {
	quotes := make([]Quote, 0, len(CoinIDs))
	for _, c := range ledger.SupportedCurrencies {
		id, ok := CoinIDs[c]
		if !ok {
			continue
		}
		p, ok := s.Coins[id]
		if !ok {
			continue
		}
		quotes = append(quotes, Quote{
			Symbol:      c,
			USD:         decimal.NewFromFloat(p.USD),
			INR:         decimal.NewFromFloat(p.INR),
			Change24h:   decimal.NewFromFloat(p.USD24hChange),
			MarketCap:   decimal.NewFromFloat(p.USDMarketCap),
			Volume24h:   decimal.NewFromFloat(p.USD24hVol),
			LastUpdated: s.FetchedAt,
		})
	}
	return quotes
}

// SnapshotFromQuotes is the inverse of QuotesFromSnapshot.
func SnapshotFromQuotes(quotes []Quote) *Snapshot {
	snap := &Snapshot{Coins: make(map[string]CoinPrice, len(quotes))}
	for _, q := range quotes {
		id, ok := CoinIDs[q.Symbol]
		if !ok {
			continue
		}
		snap.Coins[id] = CoinPrice{
			USD:          q.USD.InexactFloat64(),
			INR:          q.INR.InexactFloat64(),
			USD24hChange: q.Change24h.InexactFloat64(),
			USDMarketCap: q.MarketCap.InexactFloat64(),
			USD24hVol:    q.Volume24h.InexactFloat64(),
		}
		if q.LastUpdated.After(snap.FetchedAt) {
			snap.FetchedAt = q.LastUpdated
		}
	}
	return snap
}
