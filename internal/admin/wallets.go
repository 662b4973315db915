package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

// GET /admin/wallets
func (h *Handler) ListWallets(c echo.Context) error {
	wallets, err := h.svc.AllWallets(c.Request().Context(), limitParam(c))
	if err != nil {
		return utils.LedgerError(c, err)
	}
	if wallets == nil {
		wallets = []ledger.Wallet{}
	}
	return c.JSON(http.StatusOK, echo.Map{"wallets": wallets})
}

// GET /admin/transactions
func (h *Handler) ListTransactions(c echo.Context) error {
	f := ledger.TransactionFilter{UserID: c.QueryParam("user_id"), Limit: limitParam(c)}
	if t := c.QueryParam("type"); t != "" {
		f.Types = []ledger.TxType{ledger.TxType(t)}
	}
	txns, err := h.svc.Transactions(c.Request().Context(), f)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	if txns == nil {
		txns = []ledger.Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txns})
}
