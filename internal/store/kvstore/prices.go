package kvstore

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v3"

	"github.com/sudo-init-do/fintrade/internal/pricefeed"
)

// RecordQuotes keeps the latest quote per symbol.
func (s *Store) RecordQuotes(_ context.Context, quotes []pricefeed.Quote) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, q := range quotes {
			b, err := json.Marshal(q)
			if err != nil {
				return err
			}
			if err := txn.Set(priceKey(string(q.Symbol)), b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LatestQuotes(_ context.Context) ([]pricefeed.Quote, error) {
	var quotes []pricefeed.Quote
	err := s.db.View(func(txn *badger.Txn) error {
		t := &tx{txn: txn}
		return t.scan([]byte(prefixPrice), false, func(item *badger.Item) (bool, error) {
			var q pricefeed.Quote
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &q) }); err != nil {
				return false, err
			}
			quotes = append(quotes, q)
			return true, nil
		})
	})
	return quotes, err
}
