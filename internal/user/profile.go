package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

// Profile returns the user, their KYC status label and latest transactions.
func (h *Handler) Profile(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	p, err := h.svc.Profile(c.Request().Context(), uid)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	if p.Transactions == nil {
		p.Transactions = []ledger.Transaction{}
	}
	return c.JSON(http.StatusOK, p)
}
