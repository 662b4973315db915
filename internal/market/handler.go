package market

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/fintrade/internal/pricefeed"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

// Feed is the subset of the price feed the market pages use.
type Feed interface {
	Prices(ctx context.Context) pricefeed.Snapshot
	Historical(ctx context.Context, coinID string, days int) pricefeed.History
}

type Handler struct {
	feed Feed
}

func NewHandler(feed Feed) *Handler {
	return &Handler{feed: feed}
}

// Index is the landing page. Signed-in users are pointed to the dashboard.
func (h *Handler) Index(c echo.Context) error {
	if _, ok := utils.UserID(c); ok {
		return c.JSON(http.StatusOK, echo.Map{"redirect": "/dashboard"})
	}
	return c.JSON(http.StatusOK, echo.Map{"crypto_prices": h.feed.Prices(c.Request().Context()).Coins})
}

// CryptoPrices returns the raw price map keyed by coin id.
func (h *Handler) CryptoPrices(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Prices(c.Request().Context()).Coins)
}

// Historical returns the prices, market_caps and total_volumes series of a
// coin, each as [[unix_millis, usd_value], ...].
func (h *Handler) Historical(c echo.Context) error {
	days := pricefeed.DefaultHistoryDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid days"})
		}
		days = n
	}
	return c.JSON(http.StatusOK, h.feed.Historical(c.Request().Context(), c.Param("coinId"), days))
}
