package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/fintrade/internal/auth"
	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
	"github.com/sudo-init-do/fintrade/internal/server"
	"github.com/sudo-init-do/fintrade/internal/store/kvstore"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

const bootstrapSecret = "let-me-in"

// fixedFeed quotes BTC at 20000 INR and never changes.
type fixedFeed struct{}

var btcINR = decimal.NewFromInt(20000)

func (fixedFeed) Prices(context.Context) pricefeed.Snapshot {
	return pricefeed.Snapshot{
		Coins:  map[string]pricefeed.CoinPrice{"bitcoin": {USD: 240.62, INR: 20000}},
		Source: pricefeed.SourceLive,
	}
}

func (fixedFeed) Historical(context.Context, string, int) pricefeed.History {
	at := time.UnixMilli(1700000000000)
	return pricefeed.History{
		Prices:       []pricefeed.PricePoint{{Time: at, Price: 240}},
		MarketCaps:   []pricefeed.PricePoint{{Time: at, Price: 4700000000}},
		TotalVolumes: []pricefeed.PricePoint{},
	}
}

func (fixedFeed) ConvertCurrency(_ context.Context, amount decimal.Decimal, from, to ledger.Currency) (decimal.Decimal, error) {
	switch {
	case from == ledger.INR && to == ledger.BTC:
		return amount.Div(btcINR), nil
	case from == ledger.BTC && to == ledger.INR:
		return amount.Mul(btcINR), nil
	}
	return decimal.Zero, pricefeed.ErrUnsupportedPair
}

func (fixedFeed) UnitPriceINR(_ context.Context, c ledger.Currency) decimal.Decimal {
	switch c {
	case ledger.INR:
		return decimal.NewFromInt(1)
	case ledger.BTC:
		return btcINR
	}
	return decimal.Zero
}

type app struct {
	t *testing.T
	e *echo.Echo
}

func newApp(t *testing.T) *app {
	t.Helper()
	store, err := kvstore.Open("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := ledger.NewService(store, fixedFeed{}, zap.NewNop(), ledger.WithBcryptCost(bcrypt.MinCost))
	e := server.NewRouter(server.Deps{
		Ledger:          svc,
		Feed:            fixedFeed{},
		Store:           store,
		Tokens:          utils.NewTokenManager("test-secret", time.Hour),
		Revocations:     auth.NewMemoryRevocations(),
		Log:             zap.NewNop(),
		BootstrapSecret: bootstrapSecret,
	})
	return &app{t: t, e: e}
}

func (a *app) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *app) register(name string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[auth.SessionResponse](a.t, rec).Token
}

func (a *app) login(name string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/login", "", map[string]string{"login": name, "password": "secret123"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[auth.SessionResponse](a.t, rec).Token
}

func (a *app) balance(token string, c ledger.Currency) decimal.Decimal {
	a.t.Helper()
	rec := a.do(http.MethodGet, "/wallet", token, nil)
	require.Equal(a.t, http.StatusOK, rec.Code)
	body := decode[struct {
		Wallets []ledger.Wallet `json:"wallets"`
	}](a.t, rec)
	for _, w := range body.Wallets {
		if w.Currency == c {
			return w.Balance
		}
	}
	a.t.Fatalf("no %s wallet", c)
	return decimal.Zero
}

func TestHealthAndReady(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/ready", "", nil).Code)

	rec := a.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestLandingPage(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crypto_prices")

	token := a.register("alice")
	rec = a.do(http.MethodGet, "/", token, nil)
	assert.JSONEq(t, `{"redirect":"/dashboard"}`, rec.Body.String())
}

func TestRegisterAndDashboard(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/dashboard", "", nil).Code)

	token := a.register("alice")
	rec := a.do(http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[struct {
		Wallets []ledger.Wallet `json:"wallets"`
		Value   decimal.Decimal `json:"total_portfolio_value"`
	}](t, rec)
	assert.Len(t, dash.Wallets, len(ledger.SupportedCurrencies))
	assert.True(t, dash.Value.Equal(decimal.NewFromInt(10000)))

	rec = a.do(http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "email": "alice2@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTradingFlow(t *testing.T) {
	a := newApp(t)
	token := a.register("alice")

	rec := a.do(http.MethodPost, "/trading", token, map[string]any{
		"from_currency": "INR", "to_currency": "BTC", "amount": 10000, "transaction_type": "buy",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Successfully converted 10000 INR to 0.50000000 BTC")
	trade := decode[struct {
		Credited decimal.Decimal `json:"credited_amount"`
	}](t, rec)
	assert.True(t, a.balance(token, ledger.BTC).Equal(trade.Credited))
	assert.True(t, trade.Credited.Equal(decimal.RequireFromString("0.5")))

	rec = a.do(http.MethodPost, "/trading", token, map[string]any{
		"from_currency": "BTC", "to_currency": "INR", "amount": 1, "transaction_type": "sell",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Insufficient balance in source wallet."}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/trading", token, map[string]any{
		"from_currency": "BTC", "to_currency": "BTC", "amount": 0.1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/trading", token, map[string]any{
		"from_currency": "INR", "to_currency": "BTC", "amount": json.Number("1e50000000"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/wallet/transactions?type=buy", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transaction_type":"buy"`)
}

func TestPaymentFlow(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	bob := a.register("bob")

	rec := a.do(http.MethodPost, "/payments", alice, map[string]any{
		"recipient_email": "bob@example.com", "currency": "INR", "amount": 1000, "note": "dinner",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, a.balance(alice, ledger.INR).Equal(decimal.NewFromInt(8995)))
	assert.True(t, a.balance(bob, ledger.INR).Equal(decimal.NewFromInt(11000)))

	rec = a.do(http.MethodGet, "/payments", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transaction_type":"receive"`)

	rec = a.do(http.MethodPost, "/payments", alice, map[string]any{
		"recipient_email": "ghost@example.com", "currency": "INR", "amount": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/payments", alice, map[string]any{
		"recipient_email": "alice@example.com", "currency": "INR", "amount": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKYCReviewFlow(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	a.register("root")

	rec := a.do(http.MethodPost, "/kyc", alice, map[string]string{"document_type": "passport", "document_number": "P123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[struct {
		Document ledger.KYCDocument `json:"document"`
	}](t, rec).Document

	// not an admin yet
	rootToken := a.login("root")
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/admin/kyc/pending", rootToken, nil).Code)

	rec = a.do(http.MethodPost, "/auth/bootstrap-admin", "", map[string]string{"email": "root@example.com", "secret": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPost, "/auth/bootstrap-admin", "", map[string]string{"email": "root@example.com", "secret": bootstrapSecret})
	require.Equal(t, http.StatusOK, rec.Code)

	admin := a.login("root")
	rec = a.do(http.MethodGet, "/admin/kyc/pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), doc.ID)

	rec = a.do(http.MethodPost, "/admin/kyc/"+doc.ID+"/reject", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/admin/kyc/"+doc.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/kyc", alice, map[string]string{"document_type": "pan", "document_number": "ABCDE1234F"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, "/profile", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kyc_status":"Approved"`)

	rec = a.do(http.MethodGet, "/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[ledger.Stats](t, rec)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 0, stats.PendingKYC)
}

func TestLogoutRevokesToken(t *testing.T) {
	a := newApp(t)
	token := a.register("alice")

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/auth/me", token, nil).Code)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/auth/me", token, nil).Code)
}

func TestMarketEndpoints(t *testing.T) {
	a := newApp(t)
	token := a.register("alice")

	rec := a.do(http.MethodGet, "/api/crypto-prices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bitcoin"`)

	rec = a.do(http.MethodGet, "/api/historical-data/bitcoin?days=7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prices":[[1700000000000,240]],"market_caps":[[1700000000000,4700000000]],"total_volumes":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/historical-data/bitcoin?days=x", token, nil).Code)
}
