package wallet

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

const maxHistoryLimit = 100

// Transactions lists the user's transactions, newest first. Optional query
// parameters: type (comma separated) and limit.
func (h *Handler) Transactions(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	f := ledger.TransactionFilter{UserID: uid, Limit: ledger.ProfileTransactions}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		f.Limit = min(n, maxHistoryLimit)
	}
	if raw := c.QueryParam("type"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			f.Types = append(f.Types, ledger.TxType(strings.ToLower(strings.TrimSpace(t))))
		}
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
