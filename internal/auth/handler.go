package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/middleware"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

type Handler struct {
	svc             *ledger.Service
	tokens          *utils.TokenManager
	revoked         middleware.Revocations
	bootstrapSecret string
	secureCookie    bool
	log             *zap.Logger
}

type Options struct {
	// Revocations may be nil, in which case logout only clears the cookie.
	Revocations middleware.Revocations
	// BootstrapSecret enables POST /auth/bootstrap-admin when set.
	BootstrapSecret string
	SecureCookie    bool
	// Log defaults to a no-op logger.
	Log *zap.Logger
}

func NewHandler(svc *ledger.Service, tokens *utils.TokenManager, opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Handler{
		svc:             svc,
		tokens:          tokens,
		revoked:         opts.Revocations,
		bootstrapSecret: opts.BootstrapSecret,
		secureCookie:    opts.SecureCookie,
		log:             opts.Log,
	}
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *ledger.User `json:"user"`
	Redirect  string       `json:"redirect"`
	Message   string       `json:"message,omitempty"`
}

// startSession issues a token and mirrors it into the session cookie.
func (h *Handler) startSession(c echo.Context, status int, u *ledger.User, msg string) error {
	signed, claims, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		h.log.Error("token generation failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(status, SessionResponse{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u,
		Redirect:  "/dashboard",
		Message:   msg,
	})
}
