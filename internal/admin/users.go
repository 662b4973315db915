package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// GET /admin/users/:id
func (h *Handler) GetUser(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user id required"})
	}
	ctx := c.Request().Context()

	profile, err := h.svc.Profile(ctx, id)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	wallets, err := h.svc.Wallets(ctx, id)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	portfolio, err := h.svc.PortfolioValue(ctx, id)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":                  profile.User,
		"kyc_status":            profile.KYCStatus,
		"wallets":               wallets,
		"transactions":          profile.Transactions,
		"total_portfolio_value": portfolio,
	})
}
