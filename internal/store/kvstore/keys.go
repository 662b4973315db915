package kvstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

// Key layout. Time-ordered index keys embed a zero-padded UnixNano so that
// lexical order matches creation order.
const (
	prefixUser      = "user/"
	prefixUserEmail = "user-email/"
	prefixUserName  = "user-name/"
	prefixWallet    = "wallet/"
	prefixTxn       = "txn/"
	prefixTxnTime   = "txn-time/"
	prefixUserTxn   = "user-txn/"
	prefixKYC       = "kyc/"
	prefixKYCTime   = "kyc-time/"
	prefixUserKYC   = "user-kyc/"
	prefixPrice     = "price/"
)

func userKey(id string) []byte         { return []byte(prefixUser + id) }
func userEmailKey(email string) []byte { return []byte(prefixUserEmail + strings.ToLower(email)) }
func userNameKey(name string) []byte   { return []byte(prefixUserName + name) }

func walletKey(userID string, c ledger.Currency) []byte {
	return []byte(prefixWallet + userID + "/" + string(c))
}

func walletPrefix(userID string) []byte { return []byte(prefixWallet + userID + "/") }

func txnKey(id string) []byte { return []byte(prefixTxn + id) }

func txnTimeKey(t *ledger.Transaction) []byte {
	return []byte(prefixTxnTime + stamp(t.CreatedAt) + "/" + t.ID)
}

func userTxnKey(t *ledger.Transaction) []byte {
	return []byte(prefixUserTxn + t.UserID + "/" + stamp(t.CreatedAt) + "/" + t.ID)
}

func kycKey(id string) []byte { return []byte(prefixKYC + id) }

func kycTimeKey(d *ledger.KYCDocument) []byte {
	return []byte(prefixKYCTime + stamp(d.UploadedAt) + "/" + d.ID)
}

func userKYCKey(d *ledger.KYCDocument) []byte {
	return []byte(prefixUserKYC + d.UserID + "/" + stamp(d.UploadedAt) + "/" + d.ID)
}

func priceKey(symbol string) []byte { return []byte(prefixPrice + symbol) }

func stamp(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// lastSegment returns the record id at the end of an index key.
func lastSegment(key []byte) string {
	s := string(key)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
