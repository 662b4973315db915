package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// Dashboard returns the user's wallets, latest transactions, current
// prices and portfolio value in INR.
func (h *Handler) Dashboard(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	dash, err := h.svc.Dashboard(ctx, uid)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	snap := h.prices.Prices(ctx)

	return c.JSON(http.StatusOK, echo.Map{
		"wallets":               dash.Wallets,
		"recent_transactions":   dash.RecentTransactions,
		"crypto_prices":         snap.Coins,
		"prices_source":         snap.Source,
		"total_portfolio_value": dash.PortfolioValue,
	})
}

// Wallets returns the authenticated user's balances
func (h *Handler) Wallets(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	wallets, err := h.svc.Wallets(ctx, uid)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"wallets":       wallets,
		"crypto_prices": h.prices.Prices(ctx).Coins,
	})
}
