package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
