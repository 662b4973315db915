package wallet

import (
	"context"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
)

// PriceSource supplies the price snapshot shown next to balances.
type PriceSource interface {
	Prices(ctx context.Context) pricefeed.Snapshot
}

type Handler struct {
	svc    *ledger.Service
	prices PriceSource
}

func NewHandler(svc *ledger.Service, prices PriceSource) *Handler {
	return &Handler{svc: svc, prices: prices}
}
