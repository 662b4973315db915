package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DashboardTransactions = 5
	PaymentHistoryLimit   = 10
	ProfileTransactions   = 20
	AdminListLimit        = 50
)

func (s *Service) User(ctx context.Context, userID string) (*User, error) {
	var u *User
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		u, err = tx.UserByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("load user", err)
	}
	return u, nil
}

func (s *Service) Wallets(ctx context.Context, userID string) ([]Wallet, error) {
	var wallets []Wallet
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		wallets, err = tx.ListWallets(ctx, userID)
		return err
	})
	if err != nil {
		return nil, s.fail("list wallets", err)
	}
	return wallets, nil
}

// Transactions returns the transactions matching f, newest first.
func (s *Service) Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	var txns []Transaction
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		txns, err = tx.ListTransactions(ctx, f)
		return err
	})
	if err != nil {
		return nil, s.fail("list transactions", err)
	}
	return txns, nil
}

// RecentPayments returns the latest send and receive records of the user.
func (s *Service) RecentPayments(ctx context.Context, userID string) ([]Transaction, error) {
	return s.Transactions(ctx, TransactionFilter{
		UserID: userID,
		Types:  []TxType{TxSend, TxReceive},
		Limit:  PaymentHistoryLimit,
	})
}

func (s *Service) KYCDocuments(ctx context.Context, f KYCFilter) ([]KYCDocument, error) {
	var docs []KYCDocument
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		docs, err = tx.ListKYCDocuments(ctx, f)
		return err
	})
	if err != nil {
		return nil, s.fail("list kyc documents", err)
	}
	return docs, nil
}

// Dashboard is the overview shown after login.
type Dashboard struct {
	Wallets            []Wallet        `json:"wallets"`
	RecentTransactions []Transaction   `json:"recent_transactions"`
	PortfolioValue     decimal.Decimal `json:"total_portfolio_value"`
}

func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	d := &Dashboard{}
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		if d.Wallets, err = tx.ListWallets(ctx, userID); err != nil {
			return err
		}
		d.RecentTransactions, err = tx.ListTransactions(ctx, TransactionFilter{UserID: userID, Limit: DashboardTransactions})
		return err
	})
	if err != nil {
		return nil, s.fail("dashboard", err)
	}
	d.PortfolioValue = s.valueOf(ctx, d.Wallets)
	return d, nil
}

// Profile is the account page: the user, a KYC status label and the
// latest transactions.
type Profile struct {
	User         *User         `json:"user"`
	KYCStatus    string        `json:"kyc_status"`
	Transactions []Transaction `json:"transactions"`
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{KYCStatus: "Not Submitted"}
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		if p.User, err = tx.UserByID(ctx, userID); err != nil {
			return err
		}
		docs, err := tx.ListKYCDocuments(ctx, KYCFilter{UserID: userID, Limit: 1})
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			p.KYCStatus = titleCase(string(docs[0].Status))
		}
		p.Transactions, err = tx.ListTransactions(ctx, TransactionFilter{UserID: userID, Limit: ProfileTransactions})
		return err
	})
	if err != nil {
		return nil, s.fail("profile", err)
	}
	return p, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		st, err = tx.Stats(ctx)
		return err
	})
	if err != nil {
		return Stats{}, s.fail("stats", err)
	}
	return st, nil
}

func (s *Service) AllWallets(ctx context.Context, limit int) ([]Wallet, error) {
	var wallets []Wallet
	err := s.store.View(ctx, func(tx Tx) error {
		var err error
		wallets, err = tx.AllWallets(ctx, limit)
		return err
	})
	if err != nil {
		return nil, s.fail("all wallets", err)
	}
	return wallets, nil
}

func (s *Service) PendingKYC(ctx context.Context, limit int) ([]KYCDocument, error) {
	return s.KYCDocuments(ctx, KYCFilter{Status: KYCPending, Limit: limit})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
