package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

// LedgerError writes the JSON error response for an error returned by the
// ledger service.
func LedgerError(c echo.Context, err error) error {
	status, msg := LedgerStatus(err)
	return c.JSON(status, echo.Map{"error": msg})
}

// LedgerStatus maps ledger errors to an HTTP status and a user facing
// message. Unknown errors never leak their detail.
func LedgerStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusBadRequest, "Insufficient balance in source wallet."
	case errors.Is(err, ledger.ErrPriceUnavailable):
		return http.StatusServiceUnavailable, "Unable to fetch conversion rate. Please try again."
	case errors.Is(err, ledger.ErrRecipientNotFound):
		return http.StatusNotFound, "Recipient email not found in our system."
	case errors.Is(err, ledger.ErrSelfPaymentRejected):
		return http.StatusBadRequest, "Cannot send payment to yourself."
	case errors.Is(err, ledger.ErrAlreadyApproved):
		return http.StatusConflict, "Your KYC is already approved."
	case errors.Is(err, ledger.ErrDuplicateRegistration):
		return http.StatusConflict, "Username or email already registered."
	case errors.Is(err, ledger.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username/email or password."
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ledger.ErrKYCNotPending):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnsupportedCurrency),
		errors.Is(err, ledger.ErrSameCurrency),
		errors.Is(err, ledger.ErrInvalidTxType),
		errors.Is(err, ledger.ErrInvalidDocument),
		errors.Is(err, ledger.ErrNoteTooLong),
		errors.Is(err, ledger.ErrInvalidRegistration):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// UserID returns the authenticated user id set by the JWT middleware.
func UserID(c echo.Context) (string, bool) {
	uid, ok := c.Get("user_id").(string)
	return uid, ok && uid != ""
}
