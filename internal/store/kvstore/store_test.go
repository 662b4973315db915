package kvstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, id, name string) {
	t.Helper()
	err := s.Update(context.Background(), func(tx ledger.Tx) error {
		return tx.CreateUser(context.Background(), &ledger.User{
			ID:           id,
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: "hash-" + name,
			Role:         ledger.RoleUser,
		})
	})
	require.NoError(t, err)
}

func TestUsersRoundTripWithIndexes(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	err := s.View(ctx, func(tx ledger.Tx) error {
		byName, err := tx.UserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", byName.ID)
		assert.Equal(t, "hash-alice", byName.PasswordHash)

		byEmail, err := tx.UserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		_, err = tx.UserByID(ctx, "u2")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx ledger.Tx) error {
		return tx.CreateUser(ctx, &ledger.User{ID: "u2", Username: "alice", Email: "other@example.com"})
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateRegistration)
}

func TestCreateWalletIsUpsert(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	err := s.Update(ctx, func(tx ledger.Tx) error {
		return tx.CreateWallet(ctx, &ledger.Wallet{ID: "w1", UserID: "u1", Currency: ledger.BTC, Balance: decimal.RequireFromString("0.25")})
	})
	require.NoError(t, err)

	w := &ledger.Wallet{ID: "w2", UserID: "u1", Currency: ledger.BTC, Balance: decimal.Zero}
	err = s.Update(ctx, func(tx ledger.Tx) error { return tx.CreateWallet(ctx, w) })
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("0.25")))
}

func TestUpdateWalletBalanceRejectsNegative(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx ledger.Tx) error {
		w := &ledger.Wallet{ID: "w1", UserID: "u1", Currency: ledger.INR, Balance: decimal.NewFromInt(5)}
		if err := tx.CreateWallet(ctx, w); err != nil {
			return err
		}
		w.Balance = decimal.NewFromInt(-1)
		return tx.UpdateWalletBalance(ctx, w)
	})
	assert.ErrorIs(t, err, errNegativeBalance)

	// the failed transaction left nothing behind
	err = s.View(ctx, func(tx ledger.Tx) error {
		_, err := tx.WalletForUpdate(ctx, "u1", ledger.INR)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestContendedUpdatesAllCommit(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error {
		return tx.CreateWallet(ctx, &ledger.Wallet{ID: "w1", UserID: "u1", Currency: ledger.INR})
	}))

	const writers = 24
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, func(tx ledger.Tx) error {
				w, err := tx.WalletForUpdate(ctx, "u1", ledger.INR)
				if err != nil {
					return err
				}
				w.Balance = w.Balance.Add(decimal.NewFromInt(1))
				return tx.UpdateWalletBalance(ctx, w)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, s.View(ctx, func(tx ledger.Tx) error {
		w, err := tx.WalletForUpdate(ctx, "u1", ledger.INR)
		if err != nil {
			return err
		}
		assert.True(t, w.Balance.Equal(decimal.NewFromInt(writers)), w.Balance.String())
		return nil
	}))
}

func TestRetryDelayIsBounded(t *testing.T) {
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		d := retryDelay(attempt)
		assert.GreaterOrEqual(t, d, time.Millisecond)
		assert.LessOrEqual(t, d, maxRetryDelay+time.Millisecond)
	}
}

func TestUpdateStopsWhenContextCancelled(t *testing.T) {
	s := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Update(ctx, func(ledger.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestListWalletsDisplayOrder(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx ledger.Tx) error {
		for _, c := range []ledger.Currency{ledger.USD, ledger.BTC, ledger.INR} {
			if err := tx.CreateWallet(ctx, &ledger.Wallet{ID: string(c), UserID: "u1", Currency: c}); err != nil {
				return err
			}
		}
		return tx.CreateWallet(ctx, &ledger.Wallet{ID: "other", UserID: "u10", Currency: ledger.ETH})
	})
	require.NoError(t, err)

	var wallets []ledger.Wallet
	err = s.View(ctx, func(tx ledger.Tx) (err error) {
		wallets, err = tx.ListWallets(ctx, "u1")
		return err
	})
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	got := []ledger.Currency{wallets[0].Currency, wallets[1].Currency, wallets[2].Currency}
	assert.Equal(t, []ledger.Currency{ledger.BTC, ledger.INR, ledger.USD}, got)
}

func TestListTransactionsNewestFirstWithFilter(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	types := []ledger.TxType{ledger.TxBuy, ledger.TxSend, ledger.TxReceive, ledger.TxSell}
	err := s.Update(ctx, func(tx ledger.Tx) error {
		for i, typ := range types {
			rec := &ledger.Transaction{
				ID:        string(typ),
				UserID:    "u1",
				Type:      typ,
				Amount:    decimal.NewFromInt(int64(i + 1)),
				Status:    ledger.StatusCompleted,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			if err := tx.InsertTransaction(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var all, payments []ledger.Transaction
	err = s.View(ctx, func(tx ledger.Tx) error {
		var err error
		if all, err = tx.ListTransactions(ctx, ledger.TransactionFilter{UserID: "u1"}); err != nil {
			return err
		}
		payments, err = tx.ListTransactions(ctx, ledger.TransactionFilter{
			UserID: "u1",
			Types:  []ledger.TxType{ledger.TxSend, ledger.TxReceive},
			Limit:  1,
		})
		return err
	})
	require.NoError(t, err)

	require.Len(t, all, 4)
	assert.Equal(t, "sell", all[0].ID)
	assert.Equal(t, "buy", all[3].ID)
	require.Len(t, payments, 1)
	assert.Equal(t, "receive", payments[0].ID)
}

func TestKYCDocumentsAndStats(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	doc := &ledger.KYCDocument{ID: "d1", UserID: "u1", DocumentType: "passport", DocumentNumber: "P1", Status: ledger.KYCPending, UploadedAt: time.Now().UTC()}
	require.NoError(t, s.Update(ctx, func(tx ledger.Tx) error { return tx.InsertKYCDocument(ctx, doc) }))

	var st ledger.Stats
	require.NoError(t, s.View(ctx, func(tx ledger.Tx) (err error) {
		st, err = tx.Stats(ctx)
		return err
	}))
	assert.Equal(t, 1, st.Users)
	assert.Equal(t, 1, st.PendingKYC)

	err := s.Update(ctx, func(tx ledger.Tx) error {
		d, err := tx.KYCDocumentForUpdate(ctx, "d1")
		if err != nil {
			return err
		}
		d.Status = ledger.KYCApproved
		return tx.UpdateKYCDocument(ctx, d)
	})
	require.NoError(t, err)

	var pending []ledger.KYCDocument
	require.NoError(t, s.View(ctx, func(tx ledger.Tx) (err error) {
		pending, err = tx.ListKYCDocuments(ctx, ledger.KYCFilter{Status: ledger.KYCPending})
		return err
	}))
	assert.Empty(t, pending)
}

func TestQuotesKeepLatestPerSymbol(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordQuotes(ctx, []pricefeed.Quote{
		{Symbol: ledger.BTC, USD: decimal.NewFromInt(40000), LastUpdated: at},
		{Symbol: ledger.ETH, USD: decimal.NewFromInt(3000), LastUpdated: at},
	}))
	require.NoError(t, s.RecordQuotes(ctx, []pricefeed.Quote{
		{Symbol: ledger.BTC, USD: decimal.NewFromInt(41000), LastUpdated: at.Add(time.Minute)},
	}))

	quotes, err := s.LatestQuotes(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	for _, q := range quotes {
		if q.Symbol == ledger.BTC {
			assert.True(t, q.USD.Equal(decimal.NewFromInt(41000)))
		}
	}
}

func TestReopenFromDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	seedUser(t, s, "u1", "alice")
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)

	s, err = Open(dir, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	err = s.View(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.UserByEmail(context.Background(), "alice@example.com")
		return err
	})
	assert.NoError(t, err)
}
