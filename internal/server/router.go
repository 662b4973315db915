package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sudo-init-do/fintrade/internal/admin"
	"github.com/sudo-init-do/fintrade/internal/auth"
	"github.com/sudo-init-do/fintrade/internal/kyc"
	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/market"
	mware "github.com/sudo-init-do/fintrade/internal/middleware"
	"github.com/sudo-init-do/fintrade/internal/ticker"
	"github.com/sudo-init-do/fintrade/internal/user"
	"github.com/sudo-init-do/fintrade/internal/utils"
	"github.com/sudo-init-do/fintrade/internal/wallet"
)

// Pinger reports whether the account store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Ledger      *ledger.Service
	Feed        market.Feed
	Store       Pinger
	Tokens      *utils.TokenManager
	Revocations mware.Revocations
	// Ticker may be nil, which disables /ws/prices.
	Ticker *ticker.Hub
	Log    *zap.Logger

	// AuthRateLimit is the per-IP requests per second allowed on the
	// register and login endpoints. Zero disables limiting.
	AuthRateLimit   float64
	BootstrapSecret string
	SecureCookie    bool
}

func NewRouter(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = mware.HTTPErrorHandler(d.Log)

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(requestLogger(d.Log))

	authH := auth.NewHandler(d.Ledger, d.Tokens, auth.Options{
		Revocations:     d.Revocations,
		BootstrapSecret: d.BootstrapSecret,
		SecureCookie:    d.SecureCookie,
		Log:             d.Log.Named("auth"),
	})
	walletH := wallet.NewHandler(d.Ledger, d.Feed)
	kycH := kyc.NewHandler(d.Ledger)
	userH := user.NewHandler(d.Ledger)
	marketH := market.NewHandler(d.Feed)
	adminH := admin.NewHandler(d.Ledger)

	requireAuth := mware.JWT(d.Tokens, d.Revocations, d.Log)

	// Health routes
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	e.GET("/", marketH.Index, mware.OptionalJWT(d.Tokens, d.Revocations, d.Log))
	e.GET("/api/crypto-prices", marketH.CryptoPrices)
	if d.Ticker != nil {
		e.GET("/ws/prices", d.Ticker.Serve)
	}

	// Register and login with per-IP rate limiting to protect them from abuse
	var limit []echo.MiddlewareFunc
	if d.AuthRateLimit > 0 {
		limit = append(limit, middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(d.AuthRateLimit))))
	}
	e.GET("/register", authH.RegisterForm)
	e.POST("/register", authH.Register, limit...)
	e.GET("/login", authH.LoginForm)
	e.POST("/login", authH.Login, limit...)
	e.POST("/auth/bootstrap-admin", authH.BootstrapAdmin, limit...)

	// Protected routes
	api := e.Group("")
	api.Use(requireAuth)

	api.GET("/logout", authH.Logout)
	api.GET("/auth/me", authH.Me)

	api.GET("/dashboard", walletH.Dashboard)
	api.GET("/wallet", walletH.Wallets)
	api.GET("/wallet/transactions", walletH.Transactions)
	api.GET("/trading", walletH.TradingForm)
	api.POST("/trading", walletH.Trade)
	api.GET("/payments", walletH.RecentPayments)
	api.POST("/payments", walletH.Pay)

	api.GET("/kyc", kycH.Documents)
	api.POST("/kyc", kycH.Submit)

	api.GET("/profile", userH.Profile)
	api.GET("/api/historical-data/:coinId", marketH.Historical)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(requireAuth)
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/stats", adminH.Stats)
	adminGroup.GET("/wallets", adminH.ListWallets)
	adminGroup.GET("/transactions", adminH.ListTransactions)
	adminGroup.GET("/users/:id", adminH.GetUser)
	adminGroup.GET("/kyc/pending", adminH.PendingKYC)
	adminGroup.POST("/kyc/:id/approve", adminH.ApproveKYC)
	adminGroup.POST("/kyc/:id/reject", adminH.RejectKYC)

	return e
}

// requestLogger feeds echo's request log into zap.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if uid, ok := utils.UserID(c); ok {
				fields = append(fields, zap.String("user_id", uid))
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
