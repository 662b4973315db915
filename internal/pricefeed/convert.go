package pricefeed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

// ConvertCurrency expresses amount of from in to units. Crypto is priced
// directly in the fiat currency requested; crypto to crypto goes through
// USD; USD and INR use the fixed rate.
func (f *Feed) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to ledger.Currency) (decimal.Decimal, error) {
	if !from.Valid() || !to.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, from, to)
	}
	if from == to {
		return amount, nil
	}

	switch {
	case from == ledger.USD && to == ledger.INR:
		return amount.Mul(USDINR), nil
	case from == ledger.INR && to == ledger.USD:
		return amount.Div(USDINR), nil
	}

	snap := f.Prices(ctx)
	switch {
	case from.IsCrypto() && !to.IsCrypto():
		p, err := fiatPrice(&snap, from, to)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Mul(p), nil
	case !from.IsCrypto() && to.IsCrypto():
		p, err := fiatPrice(&snap, to, from)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Div(p), nil
	default:
		pFrom, err := fiatPrice(&snap, from, ledger.USD)
		if err != nil {
			return decimal.Zero, err
		}
		pTo, err := fiatPrice(&snap, to, ledger.USD)
		if err != nil {
			return decimal.Zero, err
		}
		return amount.Mul(pFrom).Div(pTo), nil
	}
}

// UnitPriceINR returns the INR value of one unit of c. Crypto prices come
// from Prices, which always has an answer.
func (f *Feed) UnitPriceINR(ctx context.Context, c ledger.Currency) decimal.Decimal {
	switch c {
	case ledger.INR:
		return decimal.NewFromInt(1)
	case ledger.USD:
		return USDINR
	}
	snap := f.Prices(ctx)
	p, err := fiatPrice(&snap, c, ledger.INR)
	if err != nil {
		return decimal.Zero
	}
	return p
}

// fiatPrice is the price of one unit of crypto in fiat.
func fiatPrice(snap *Snapshot, crypto, fiat ledger.Currency) (decimal.Decimal, error) {
	id, ok := CoinIDs[crypto]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedPair, crypto)
	}
	coin, ok := snap.Coins[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, crypto)
	}
	var v float64
	switch fiat {
	case ledger.USD:
		v = coin.USD
	case ledger.INR:
		v = coin.INR
	default:
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, crypto, fiat)
	}
	if v <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s in %s", ErrNoPrice, crypto, fiat)
	}
	return decimal.NewFromFloat(v), nil
}
