package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
)

// RecordQuotes upserts the latest quote per symbol.
func (s *Store) RecordQuotes(ctx context.Context, quotes []pricefeed.Quote) error {
	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(`
            INSERT INTO crypto_prices (symbol, price_usd, price_inr, change_24h, market_cap, volume_24h, last_updated)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            ON CONFLICT (symbol) DO UPDATE SET
                price_usd = EXCLUDED.price_usd,
                price_inr = EXCLUDED.price_inr,
                change_24h = EXCLUDED.change_24h,
                market_cap = EXCLUDED.market_cap,
                volume_24h = EXCLUDED.volume_24h,
                last_updated = EXCLUDED.last_updated`,
			string(q.Symbol), q.USD.String(), q.INR.String(), q.Change24h.Round(8).String(),
			q.MarketCap.Round(2).String(), q.Volume24h.Round(2).String(), q.LastUpdated,
		)
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *Store) LatestQuotes(ctx context.Context) ([]pricefeed.Quote, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT symbol, price_usd::text, price_inr::text, change_24h::text, market_cap::text,
               volume_24h::text, last_updated
        FROM crypto_prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []pricefeed.Quote
	for rows.Next() {
		var (
			q                              pricefeed.Quote
			symbol                         string
			usd, inr, change, mcap, volume string
		)
		if err := rows.Scan(&symbol, &usd, &inr, &change, &mcap, &volume, &q.LastUpdated); err != nil {
			return nil, err
		}
		q.Symbol = ledger.Currency(symbol)
		if q.USD, err = parseDecimal(usd); err != nil {
			return nil, err
		}
		if q.INR, err = parseDecimal(inr); err != nil {
			return nil, err
		}
		if q.Change24h, err = parseDecimal(change); err != nil {
			return nil, err
		}
		if q.MarketCap, err = parseDecimal(mcap); err != nil {
			return nil, err
		}
		if q.Volume24h, err = parseDecimal(volume); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
