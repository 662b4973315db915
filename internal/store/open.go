// Package store selects the account store implementation.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/config"
	"github.com/sudo-init-do/fintrade/internal/db"
	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
	"github.com/sudo-init-do/fintrade/internal/store/kvstore"
	"github.com/sudo-init-do/fintrade/internal/store/pgstore"
)

// Backend is an account store that also persists price quotes.
type Backend interface {
	ledger.Store
	pricefeed.Recorder
}

// Open returns the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		return pgstore.New(pool), nil
	case config.DriverBadger:
		s, err := kvstore.Open(cfg.BadgerDir, log)
		if err != nil {
			return nil, err
		}
		log.Info("opened badger store", zap.String("dir", cfg.BadgerDir))
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
