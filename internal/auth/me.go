package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// Me returns the currently authenticated user
func (h *Handler) Me(c echo.Context) error {
	uid, ok := utils.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	user, err := h.svc.User(c.Request().Context(), uid)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}
