package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sudo-init-do/fintrade/internal/utils"
)

type revokedSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (r *revokedSet) Revoke(_ context.Context, id string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = true
	return nil
}

func (r *revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[id], nil
}

func newProtected(tokens *utils.TokenManager, revoked Revocations) *echo.Echo {
	e := echo.New()
	whoami := func(c echo.Context) error {
		uid, _ := utils.UserID(c)
		return c.String(http.StatusOK, uid)
	}
	e.GET("/private", whoami, JWT(tokens, revoked, nil))
	e.GET("/public", whoami, OptionalJWT(tokens, revoked, nil))
	e.GET("/admin", whoami, JWT(tokens, revoked, nil), AdminGuard)
	return e
}

func get(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	revoked := &revokedSet{ids: map[string]bool{}}
	e := newProtected(tokens, revoked)

	userTok, claims, err := tokens.Issue("u1", "user")
	require.NoError(t, err)

	rec := get(e, "/private", userTok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(e, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "/private", "garbage").Code)

	require.NoError(t, revoked.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))
	assert.Equal(t, http.StatusUnauthorized, get(e, "/private", userTok).Code)
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis: connection refused")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestJWTRevocationFailureIsLogged(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	core, logs := observer.New(zap.ErrorLevel)

	e := echo.New()
	e.GET("/private", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWT(tokens, failingRevocations{}, zap.New(core)))

	tok, claims, err := tokens.Issue("u1", "user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/private", tok).Code)

	entries := logs.FilterMessage("revocation check failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, claims.ID, entries[0].ContextMap()["token_id"])
}

func TestOptionalJWT(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	e := newProtected(tokens, nil)

	rec := get(e, "/public", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	tok, _, err := tokens.Issue("u2", "user")
	require.NoError(t, err)
	rec = get(e, "/public", tok)
	assert.Equal(t, "u2", rec.Body.String())

	assert.Equal(t, http.StatusOK, get(e, "/public", "garbage").Code)
}

func TestAdminGuard(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	e := newProtected(tokens, nil)

	userTok, _, err := tokens.Issue("u1", "user")
	require.NoError(t, err)
	adminTok, _, err := tokens.Issue("a1", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(e, "/admin", userTok).Code)
	assert.Equal(t, http.StatusOK, get(e, "/admin", adminTok).Code)
}
