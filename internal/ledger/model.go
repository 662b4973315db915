package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is one of the fixed wallet currencies.
type Currency string

const (
	BTC  Currency = "BTC"
	ETH  Currency = "ETH"
	USDT Currency = "USDT"
	INR  Currency = "INR"
	USD  Currency = "USD"
)

// SupportedCurrencies lists every wallet currency in display order.
var SupportedCurrencies = []Currency{BTC, ETH, USDT, INR, USD}

// ParseCurrency normalizes s and checks it against the supported set.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	switch c {
	case BTC, ETH, USDT, INR, USD:
		return true
	}
	return false
}

// IsCrypto reports whether c is priced by the external feed.
func (c Currency) IsCrypto() bool {
	return c == BTC || c == ETH || c == USDT
}

type TxType string

const (
	TxBuy     TxType = "buy"
	TxSell    TxType = "sell"
	TxConvert TxType = "convert"
	TxSend    TxType = "send"
	TxReceive TxType = "receive"
)

// ParseTradeType accepts the types a user may pick for a conversion.
// An empty string means convert.
func ParseTradeType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TxConvert, nil
	case TxBuy, TxSell, TxConvert:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTxType, s)
}

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
)

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// DocumentTypes are the identity documents accepted for KYC.
var DocumentTypes = []string{"passport", "aadhar", "pan", "driving_license"}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Phone            string    `json:"phone,omitempty"`
	Role             string    `json:"role"`
	IsKYCVerified    bool      `json:"is_kyc_verified"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

// Wallet holds one user's balance in one currency.
type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Currency  Currency        `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is the immutable audit record of a ledger operation.
// Amount and Fee are in FromCurrency units; Rate is ToCurrency per FromCurrency.
type Transaction struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Type             TxType          `json:"transaction_type"`
	FromCurrency     Currency        `json:"from_currency"`
	ToCurrency       Currency        `json:"to_currency"`
	Amount           decimal.Decimal `json:"amount"`
	Rate             decimal.Decimal `json:"rate"`
	Fee              decimal.Decimal `json:"fee"`
	Status           TxStatus        `json:"status"`
	RecipientAddress string          `json:"recipient_address,omitempty"`
	CorrelationID    string          `json:"correlation_id"`
	Note             string          `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

type KYCDocument struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	DocumentType    string     `json:"document_type"`
	DocumentNumber  string     `json:"document_number"`
	Status          KYCStatus  `json:"status"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
}

// Stats is the admin overview of record counts.
type Stats struct {
	Users        int `json:"users"`
	Wallets      int `json:"wallets"`
	Transactions int `json:"transactions"`
	PendingKYC   int `json:"pending_kyc"`
}
