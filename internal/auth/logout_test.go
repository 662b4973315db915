package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

type brokenRevocations struct{}

func (brokenRevocations) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis: i/o timeout")
}

func (brokenRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, nil
}

func logoutWith(t *testing.T, h *Handler, tokens *utils.TokenManager) (*httptest.ResponseRecorder, *utils.Claims) {
	t.Helper()
	_, claims, err := tokens.Issue("u1", "user")
	require.NoError(t, err)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/logout", nil), rec)
	c.Set("claims", claims)
	require.NoError(t, h.Logout(c))
	return rec, claims
}

func TestLogoutRevokesToken(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	revoked := NewMemoryRevocations()
	h := NewHandler(nil, tokens, Options{Revocations: revoked})

	rec, claims := logoutWith(t, h, tokens)
	assert.Equal(t, http.StatusOK, rec.Code)

	isRevoked, err := revoked.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, isRevoked)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), utils.SessionCookie+"=;")
}

func TestLogoutRevocationFailureIsLogged(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	core, logs := observer.New(zap.ErrorLevel)
	h := NewHandler(nil, tokens, Options{Revocations: brokenRevocations{}, Log: zap.New(core)})

	rec, claims := logoutWith(t, h, tokens)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.FilterMessage("token revocation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, claims.ID, entries[0].ContextMap()["token_id"])
}
