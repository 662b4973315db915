package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the account store. Update runs fn in a read-write scoped
// transaction that commits when fn returns nil and rolls back otherwise;
// View runs fn in a read-only one.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of record operations available inside a scoped transaction.
// Lookups return ErrNotFound when the record does not exist.
type Tx interface {
	// CreateUser returns ErrDuplicateRegistration when the username or
	// email is taken.
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	SetUserKYCVerified(ctx context.Context, userID string, verified bool) error
	SetUserRole(ctx context.Context, userID, role string) error

	// WalletForUpdate loads the wallet and holds it against concurrent
	// writers until the transaction ends.
	WalletForUpdate(ctx context.Context, userID string, currency Currency) (*Wallet, error)
	// CreateWallet inserts w. If the (user, currency) wallet already
	// exists, w is overwritten with the stored row instead.
	CreateWallet(ctx context.Context, w *Wallet) error
	UpdateWalletBalance(ctx context.Context, w *Wallet) error
	ListWallets(ctx context.Context, userID string) ([]Wallet, error)
	AllWallets(ctx context.Context, limit int) ([]Wallet, error)

	InsertTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)

	InsertKYCDocument(ctx context.Context, d *KYCDocument) error
	KYCDocumentForUpdate(ctx context.Context, id string) (*KYCDocument, error)
	UpdateKYCDocument(ctx context.Context, d *KYCDocument) error
	ListKYCDocuments(ctx context.Context, f KYCFilter) ([]KYCDocument, error)

	Stats(ctx context.Context) (Stats, error)
}

// TransactionFilter selects transactions newest first. Empty fields match
// everything; Limit <= 0 means no limit.
type TransactionFilter struct {
	UserID string
	Types  []TxType
	Limit  int
}

func (f TransactionFilter) Match(t *Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, typ := range f.Types {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// KYCFilter selects KYC documents newest first.
type KYCFilter struct {
	UserID string
	Status KYCStatus
	Limit  int
}

func (f KYCFilter) Match(d *KYCDocument) bool {
	if f.UserID != "" && d.UserID != f.UserID {
		return false
	}
	return f.Status == "" || d.Status == f.Status
}

// PriceFeed is what the ledger needs from the market data source.
type PriceFeed interface {
	// ConvertCurrency returns amount expressed in to units, or an error
	// when no rate exists for the pair.
	ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to Currency) (decimal.Decimal, error)
	// UnitPriceINR returns the INR value of one unit of c, falling back to
	// static prices when the feed is down.
	UnitPriceINR(ctx context.Context, c Currency) decimal.Decimal
}
