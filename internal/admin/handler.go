package admin

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

// limitParam reads ?limit=, defaulting to ledger.AdminListLimit.
func limitParam(c echo.Context) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 {
		return ledger.AdminListLimit
	}
	return min(n, 500)
}
