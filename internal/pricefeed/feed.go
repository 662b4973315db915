// Package pricefeed fetches cryptocurrency prices from CoinGecko and caches
// them for the ledger and the web layer.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultTTL     = 60 * time.Second
	requestTimeout = 10 * time.Second
)

type Feed struct {
	baseURL  string
	client   *http.Client
	ttl      time.Duration
	cache    Cache
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
	group    singleflight.Group

	mu      sync.RWMutex
	last    *Snapshot
	expires time.Time
}

type Option func(*Feed)

func WithBaseURL(u string) Option {
	return func(f *Feed) {
		if u != "" {
			f.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Feed) { f.client = c }
}

func WithTTL(ttl time.Duration) Option {
	return func(f *Feed) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithSharedCache adds a cache consulted after the in-process one.
func WithSharedCache(c Cache) Option {
	return func(f *Feed) { f.cache = c }
}

func WithRecorder(r Recorder) Option {
	return func(f *Feed) { f.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

func New(opts ...Option) *Feed {
	f := &Feed{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
		ttl:     DefaultTTL,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Prices returns the current snapshot. It never fails: when the API is
// unreachable the last good snapshot, stored quotes or the fallback table
// are returned, in that order.
func (f *Feed) Prices(ctx context.Context) Snapshot {
	now := f.now()

	f.mu.RLock()
	if f.last != nil && now.Before(f.expires) {
		snap := f.last.withSource(SourceCache)
		f.mu.RUnlock()
		return snap
	}
	f.mu.RUnlock()

	v, _, _ := f.group.Do("prices", func() (any, error) {
		return f.refresh(ctx), nil
	})
	return v.(Snapshot)
}

func (f *Feed) refresh(ctx context.Context) Snapshot {
	now := f.now()

	// Shared cache
	if f.cache != nil {
		snap, err := f.cache.Load(ctx)
		if err != nil {
			f.log.Warn("price cache load failed", zap.Error(err))
		}
		if snap != nil && now.Before(snap.FetchedAt.Add(f.ttl)) {
			f.remember(snap, snap.FetchedAt.Add(f.ttl))
			return snap.withSource(SourceCache)
		}
	}

	// Live API
	snap, err := f.fetch(ctx)
	if err == nil {
		snap.FetchedAt = now
		snap.Source = SourceLive
		f.remember(snap, now.Add(f.ttl))
		f.publish(ctx, snap)
		return *snap
	}
	f.log.Warn("price api fetch failed", zap.Error(err))

	f.mu.RLock()
	last := f.last
	f.mu.RUnlock()
	if last != nil {
		return last.withSource(SourceStale)
	}

	if f.recorder != nil {
		quotes, err := f.recorder.LatestQuotes(ctx)
		if err != nil {
			f.log.Warn("stored price load failed", zap.Error(err))
		}
		if len(quotes) > 0 {
			return SnapshotFromQuotes(quotes).withSource(SourceStored)
		}
	}

	fb := fallbackSnapshot()
	fb.FetchedAt = now
	return fb
}

func (f *Feed) remember(snap *Snapshot, expires time.Time) {
	f.mu.Lock()
	f.last = snap
	f.expires = expires
	f.mu.Unlock()
}

// publish pushes a live snapshot to the shared cache and the recorder.
func (f *Feed) publish(ctx context.Context, snap *Snapshot) {
	if f.cache != nil {
		if err := f.cache.Store(ctx, snap, f.ttl); err != nil {
			f.log.Warn("price cache store failed", zap.Error(err))
		}
	}
	if f.recorder != nil {
		if err := f.recorder.RecordQuotes(ctx, QuotesFromSnapshot(snap)); err != nil {
			f.log.Warn("recording prices failed", zap.Error(err))
		}
	}
}

func (f *Feed) fetch(ctx context.Context) (*Snapshot, error) {
	q := url.Values{}
	q.Set("ids", "bitcoin,ethereum,tether")
	q.Set("vs_currencies", "usd,inr")
	q.Set("include_24hr_change", "true")
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")

	var coins map[string]CoinPrice
	if err := f.getJSON(ctx, "/simple/price?"+q.Encode(), &coins); err != nil {
		return nil, err
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("empty price response")
	}
	return &Snapshot{Coins: coins}, nil
}

// PricePoint is one sample of a historical series. It encodes as
// [unix_millis, price] like the CoinGecko API.
type PricePoint struct {
	Time  time.Time
	Price float64
}

func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.Time.UnixMilli()), p.Price})
}

func (p *PricePoint) UnmarshalJSON(b []byte) error {
	var raw [2]float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Time = time.UnixMilli(int64(raw[0])).UTC()
	p.Price = raw[1]
	return nil
}

const (
	DefaultHistoryDays = 7
	maxHistoryDays     = 365
)

// History is a market_chart response. Every series is non-nil so that an
// empty history still encodes all three keys.
type History struct {
	Prices       []PricePoint `json:"prices"`
	MarketCaps   []PricePoint `json:"market_caps"`
	TotalVolumes []PricePoint `json:"total_volumes"`
}

func emptyHistory() History {
	return History{Prices: []PricePoint{}, MarketCaps: []PricePoint{}, TotalVolumes: []PricePoint{}}
}

// Historical returns the USD price, market cap and volume series of coinID
// over the last days. Failures yield empty series.
func (f *Feed) Historical(ctx context.Context, coinID string, days int) History {
	if !knownCoin(coinID) {
		return emptyHistory()
	}
	if days <= 0 {
		days = DefaultHistoryDays
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	var h History
	path := "/coins/" + coinID + "/market_chart?vs_currency=usd&days=" + strconv.Itoa(days)
	if err := f.getJSON(ctx, path, &h); err != nil {
		f.log.Warn("historical price fetch failed", zap.String("coin", coinID), zap.Error(err))
		return emptyHistory()
	}
	if h.Prices == nil {
		h.Prices = []PricePoint{}
	}
	if h.MarketCaps == nil {
		h.MarketCaps = []PricePoint{}
	}
	if h.TotalVolumes == nil {
		h.TotalVolumes = []PricePoint{}
	}
	return h
}

func (f *Feed) getJSON(ctx context.Context, path string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("price api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func knownCoin(id string) bool {
	for _, known := range CoinIDs {
		if known == id {
			return true
		}
	}
	return false
}
