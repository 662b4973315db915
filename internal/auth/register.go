package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

type RegisterRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Phone           string `json:"phone" form:"phone"`
}

// RegisterForm describes what a new account receives.
func (h *Handler) RegisterForm(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"fields":         []string{"username", "email", "password", "confirm_password", "first_name", "last_name", "phone"},
		"currencies":     ledger.SupportedCurrencies,
		"starting_grant": echo.Map{"currency": ledger.INR, "amount": ledger.StartingGrant},
	})
}

// Register creates the account and its wallets, then logs the user in.
func (h *Handler) Register(c echo.Context) error {
	req := new(RegisterRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	user, err := h.svc.Register(c.Request().Context(), ledger.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return utils.LedgerError(c, err)
	}
	return h.startSession(c, http.StatusCreated, user, "Registration successful! Welcome to CryptoFintech.")
}
