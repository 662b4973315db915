package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

// Revocations tracks tokens invalidated by logout.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWT authenticates the request and stores user_id, role and claims on the
// context. Revocations and log may be nil.
func JWT(tokens *utils.TokenManager, revoked Revocations, log *zap.Logger) echo.MiddlewareFunc {
	return jwtMiddleware(tokens, revoked, log, false)
}

// OptionalJWT behaves like JWT but lets anonymous requests through.
func OptionalJWT(tokens *utils.TokenManager, revoked Revocations, log *zap.Logger) echo.MiddlewareFunc {
	return jwtMiddleware(tokens, revoked, log, true)
}

func jwtMiddleware(tokens *utils.TokenManager, revoked Revocations, log *zap.Logger, optional bool) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := utils.ExtractToken(c)
			if err != nil {
				if optional {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				if optional {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					log.Error("revocation check failed", zap.String("token_id", claims.ID), zap.Error(err))
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session check unavailable"})
				}
				if isRevoked {
					if optional {
						return next(c)
					}
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session has ended"})
				}
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			c.Set("claims", claims)
			return next(c)
		}
	}
}
