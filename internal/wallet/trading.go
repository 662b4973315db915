package wallet

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

type TradeRequest struct {
	FromCurrency    string      `json:"from_currency" form:"from_currency"`
	ToCurrency      string      `json:"to_currency" form:"to_currency"`
	Amount          json.Number `json:"amount" form:"amount"`
	TransactionType string      `json:"transaction_type" form:"transaction_type"`
}

// TradingForm returns current prices and the accepted trade parameters.
func (h *Handler) TradingForm(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"crypto_prices":     h.prices.Prices(c.Request().Context()).Coins,
		"currencies":        ledger.SupportedCurrencies,
		"transaction_types": []ledger.TxType{ledger.TxBuy, ledger.TxSell, ledger.TxConvert},
		"fee_rate":          ledger.ConvertFeeRate,
	})
}

// Trade converts between two of the user's wallets.
func (h *Handler) Trade(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	req := new(TradeRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	from, err := ledger.ParseCurrency(req.FromCurrency)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	to, err := ledger.ParseCurrency(req.ToCurrency)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	txType, err := ledger.ParseTradeType(req.TransactionType)
	if err != nil {
		return utils.LedgerError(c, err)
	}

	conv, err := h.svc.Convert(c.Request().Context(), uid, from, to, amount, txType)
	if err != nil {
		return utils.LedgerError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Successfully converted %s %s to %s %s",
			amount.String(), from, conv.Credited.StringFixed(ledger.MoneyPlaces), to),
		"transaction":     conv.Transaction,
		"credited_amount": conv.Credited,
	})
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount")
	}
	return amount, nil
}
