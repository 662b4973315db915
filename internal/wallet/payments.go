package wallet

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

type PaymentRequest struct {
	RecipientEmail string      `json:"recipient_email" form:"recipient_email"`
	Currency       string      `json:"currency" form:"currency"`
	Amount         json.Number `json:"amount" form:"amount"`
	Note           string      `json:"note" form:"note"`
}

// RecentPayments returns the user's latest sent and received payments.
func (h *Handler) RecentPayments(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	txns, err := h.svc.RecentPayments(c.Request().Context(), uid)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	if txns == nil {
		txns = []ledger.Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"recent_payments": txns,
		"currencies":      ledger.SupportedCurrencies,
		"fee_rate":        ledger.PaymentFeeRate,
	})
}

// Pay sends money to another registered user by email.
func (h *Handler) Pay(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(PaymentRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.RecipientEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipient_email is required"})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	currency, err := ledger.ParseCurrency(req.Currency)
	if err != nil {
		return utils.LedgerError(c, err)
	}

	payment, err := h.svc.Pay(c.Request().Context(), uid, req.RecipientEmail, currency, amount, req.Note)
	if err != nil {
		return utils.LedgerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Payment of %s %s sent successfully to %s",
			amount.String(), currency, payment.Send.RecipientAddress),
		"payment": payment,
	})
}
