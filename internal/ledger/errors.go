package ledger

import "errors"

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrRecipientNotFound     = errors.New("recipient not found")
	ErrSelfPaymentRejected   = errors.New("cannot send payment to yourself")
	ErrAlreadyApproved       = errors.New("kyc already approved")
	ErrPriceUnavailable      = errors.New("price unavailable")
	ErrDuplicateRegistration = errors.New("username or email already registered")
	ErrStoreFailure          = errors.New("store failure")

	ErrNotFound            = errors.New("record not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrSameCurrency        = errors.New("source and target currency must differ")
	ErrInvalidTxType       = errors.New("invalid transaction type")
	ErrInvalidCredentials  = errors.New("invalid username/email or password")
	ErrInvalidDocument     = errors.New("invalid kyc document")
	ErrKYCNotPending       = errors.New("kyc document is not pending review")
	ErrNoteTooLong         = errors.New("note must be at most 200 characters")
	ErrInvalidRegistration = errors.New("invalid registration details")
)

// domainErrors are returned to callers as-is; anything else coming out of
// the store is reported as ErrStoreFailure.
var domainErrors = []error{
	ErrInsufficientBalance,
	ErrRecipientNotFound,
	ErrSelfPaymentRejected,
	ErrAlreadyApproved,
	ErrPriceUnavailable,
	ErrDuplicateRegistration,
	ErrStoreFailure,
	ErrNotFound,
	ErrInvalidAmount,
	ErrUnsupportedCurrency,
	ErrSameCurrency,
	ErrInvalidTxType,
	ErrInvalidCredentials,
	ErrInvalidDocument,
	ErrKYCNotPending,
	ErrNoteTooLong,
	ErrInvalidRegistration,
}

// IsDomainError reports whether err is one of the ledger's sentinel errors.
func IsDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}
