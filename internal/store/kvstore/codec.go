package kvstore

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

var errNegativeBalance = errors.New("kvstore: wallet balance would become negative")

func unmarshal(val []byte, v any) error {
	return json.Unmarshal(val, v)
}

var currencyRank = func() map[ledger.Currency]int {
	m := make(map[ledger.Currency]int, len(ledger.SupportedCurrencies))
	for i, c := range ledger.SupportedCurrencies {
		m[c] = i
	}
	return m
}()

// sortWallets orders a user's wallets the way they are displayed.
func sortWallets(ws []ledger.Wallet) {
	sort.SliceStable(ws, func(i, j int) bool {
		return currencyRank[ws[i].Currency] < currencyRank[ws[j].Currency]
	})
}
