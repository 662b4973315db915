package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// Logout revokes the current token and clears the session cookie.
func (h *Handler) Logout(c echo.Context) error {
	if claims, ok := c.Get("claims").(*utils.Claims); ok && h.revoked != nil && claims.ExpiresAt != nil {
		if err := h.revoked.Revoke(c.Request().Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			h.log.Error("token revocation failed", zap.String("token_id", claims.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "You have been logged out.", "redirect": "/"})
}
