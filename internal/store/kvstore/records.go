package kvstore

import (
	"context"

	"github.com/dgraph-io/badger/v3"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

// userRecord keeps the password hash, which ledger.User hides from JSON.
type userRecord struct {
	ledger.User
	PasswordHash string `json:"password_hash"`
}

func (t *tx) CreateUser(_ context.Context, u *ledger.User) error {
	for _, key := range [][]byte{userNameKey(u.Username), userEmailKey(u.Email)} {
		taken, err := t.exists(key)
		if err != nil {
			return err
		}
		if taken {
			return ledger.ErrDuplicateRegistration
		}
	}
	if err := t.putUser(u); err != nil {
		return err
	}
	if err := t.txn.Set(userNameKey(u.Username), []byte(u.ID)); err != nil {
		return err
	}
	return t.txn.Set(userEmailKey(u.Email), []byte(u.ID))
}

func (t *tx) putUser(u *ledger.User) error {
	return t.setJSON(userKey(u.ID), userRecord{User: *u, PasswordHash: u.PasswordHash})
}

func (t *tx) UserByID(_ context.Context, id string) (*ledger.User, error) {
	var rec userRecord
	if err := t.getJSON(userKey(id), &rec); err != nil {
		return nil, err
	}
	u := rec.User
	u.PasswordHash = rec.PasswordHash
	return &u, nil
}

func (t *tx) UserByEmail(ctx context.Context, email string) (*ledger.User, error) {
	id, err := t.indexTarget(userEmailKey(email))
	if err != nil {
		return nil, err
	}
	return t.UserByID(ctx, id)
}

func (t *tx) UserByUsername(ctx context.Context, username string) (*ledger.User, error) {
	id, err := t.indexTarget(userNameKey(username))
	if err != nil {
		return nil, err
	}
	return t.UserByID(ctx, id)
}

func (t *tx) SetUserKYCVerified(ctx context.Context, userID string, verified bool) error {
	u, err := t.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	u.IsKYCVerified = verified
	return t.putUser(u)
}

func (t *tx) SetUserRole(ctx context.Context, userID, role string) error {
	u, err := t.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	u.Role = role
	return t.putUser(u)
}

// WalletForUpdate relies on Badger's conflict detection: the read is
// tracked and a concurrent commit to the same key aborts this transaction.
func (t *tx) WalletForUpdate(_ context.Context, userID string, c ledger.Currency) (*ledger.Wallet, error) {
	var w ledger.Wallet
	if err := t.getJSON(walletKey(userID, c), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (t *tx) CreateWallet(_ context.Context, w *ledger.Wallet) error {
	key := walletKey(w.UserID, w.Currency)
	var existing ledger.Wallet
	err := t.getJSON(key, &existing)
	if err == nil {
		*w = existing
		return nil
	}
	if err != ledger.ErrNotFound {
		return err
	}
	return t.setJSON(key, w)
}

func (t *tx) UpdateWalletBalance(_ context.Context, w *ledger.Wallet) error {
	if w.Balance.IsNegative() {
		return errNegativeBalance
	}
	return t.setJSON(walletKey(w.UserID, w.Currency), w)
}

func (t *tx) ListWallets(_ context.Context, userID string) ([]ledger.Wallet, error) {
	var wallets []ledger.Wallet
	err := t.scan(walletPrefix(userID), false, func(item *badger.Item) (bool, error) {
		var w ledger.Wallet
		if err := item.Value(func(val []byte) error { return unmarshal(val, &w) }); err != nil {
			return false, err
		}
		wallets = append(wallets, w)
		return true, nil
	})
	sortWallets(wallets)
	return wallets, err
}

func (t *tx) AllWallets(_ context.Context, limit int) ([]ledger.Wallet, error) {
	var wallets []ledger.Wallet
	err := t.scan([]byte(prefixWallet), false, func(item *badger.Item) (bool, error) {
		var w ledger.Wallet
		if err := item.Value(func(val []byte) error { return unmarshal(val, &w) }); err != nil {
			return false, err
		}
		wallets = append(wallets, w)
		return limit <= 0 || len(wallets) < limit, nil
	})
	return wallets, err
}

func (t *tx) InsertTransaction(_ context.Context, rec *ledger.Transaction) error {
	if err := t.setJSON(txnKey(rec.ID), rec); err != nil {
		return err
	}
	if err := t.txn.Set(txnTimeKey(rec), nil); err != nil {
		return err
	}
	return t.txn.Set(userTxnKey(rec), nil)
}

func (t *tx) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	prefix := []byte(prefixTxnTime)
	if f.UserID != "" {
		prefix = []byte(prefixUserTxn + f.UserID + "/")
	}

	var out []ledger.Transaction
	err := t.scan(prefix, true, func(item *badger.Item) (bool, error) {
		var rec ledger.Transaction
		if err := t.getJSON(txnKey(lastSegment(item.Key())), &rec); err != nil {
			return false, err
		}
		if f.Match(&rec) {
			out = append(out, rec)
		}
		return f.Limit <= 0 || len(out) < f.Limit, nil
	})
	return out, err
}

func (t *tx) InsertKYCDocument(_ context.Context, d *ledger.KYCDocument) error {
	if err := t.setJSON(kycKey(d.ID), d); err != nil {
		return err
	}
	if err := t.txn.Set(kycTimeKey(d), nil); err != nil {
		return err
	}
	return t.txn.Set(userKYCKey(d), nil)
}

func (t *tx) KYCDocumentForUpdate(_ context.Context, id string) (*ledger.KYCDocument, error) {
	var d ledger.KYCDocument
	if err := t.getJSON(kycKey(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *tx) UpdateKYCDocument(_ context.Context, d *ledger.KYCDocument) error {
	ok, err := t.exists(kycKey(d.ID))
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrNotFound
	}
	return t.setJSON(kycKey(d.ID), d)
}

func (t *tx) ListKYCDocuments(_ context.Context, f ledger.KYCFilter) ([]ledger.KYCDocument, error) {
	prefix := []byte(prefixKYCTime)
	if f.UserID != "" {
		prefix = []byte(prefixUserKYC + f.UserID + "/")
	}

	var out []ledger.KYCDocument
	err := t.scan(prefix, true, func(item *badger.Item) (bool, error) {
		var d ledger.KYCDocument
		if err := t.getJSON(kycKey(lastSegment(item.Key())), &d); err != nil {
			return false, err
		}
		if f.Match(&d) {
			out = append(out, d)
		}
		return f.Limit <= 0 || len(out) < f.Limit, nil
	})
	return out, err
}

func (t *tx) Stats(ctx context.Context) (ledger.Stats, error) {
	var st ledger.Stats
	var err error
	if st.Users, err = t.countPrefix([]byte(prefixUser)); err != nil {
		return st, err
	}
	if st.Wallets, err = t.countPrefix([]byte(prefixWallet)); err != nil {
		return st, err
	}
	if st.Transactions, err = t.countPrefix([]byte(prefixTxn)); err != nil {
		return st, err
	}
	pending, err := t.ListKYCDocuments(ctx, ledger.KYCFilter{Status: ledger.KYCPending})
	st.PendingKYC = len(pending)
	return st, err
}
