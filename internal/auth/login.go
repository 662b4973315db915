package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// LoginRequest accepts a username or an email in Login. Username and
// Email are accepted as aliases.
type LoginRequest struct {
	Login    string `json:"login" form:"login"`
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r *LoginRequest) identifier() string {
	switch {
	case r.Login != "":
		return r.Login
	case r.Username != "":
		return r.Username
	}
	return r.Email
}

func (h *Handler) LoginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"fields": []string{"login", "password"}})
}

func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	user, err := h.svc.Authenticate(c.Request().Context(), req.identifier(), req.Password)
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return h.startSession(c, http.StatusOK, user, "")
}
