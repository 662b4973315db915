package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/alerts"
	"github.com/sudo-init-do/fintrade/internal/auth"
	"github.com/sudo-init-do/fintrade/internal/config"
	"github.com/sudo-init-do/fintrade/internal/events"
	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/logger"
	mware "github.com/sudo-init-do/fintrade/internal/middleware"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
	"github.com/sudo-init-do/fintrade/internal/server"
	"github.com/sudo-init-do/fintrade/internal/store"
	"github.com/sudo-init-do/fintrade/internal/ticker"
	"github.com/sudo-init-do/fintrade/internal/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Development())
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	feedOpts := []pricefeed.Option{
		pricefeed.WithBaseURL(cfg.PriceAPIURL),
		pricefeed.WithTTL(cfg.PriceCacheTTL),
		pricefeed.WithRecorder(backend),
		pricefeed.WithLogger(log.Named("pricefeed")),
	}
	var (
		revocations mware.Revocations = auth.NewMemoryRevocations()
		ledgerOpts  []ledger.Option
	)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		feedOpts = append(feedOpts, pricefeed.WithSharedCache(pricefeed.NewRedisCache(rdb)))
		revocations = auth.NewRedisRevocations(rdb)

		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		queue := asynq.NewClient(redisOpt)
		defer queue.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithObserver(alerts.NewDispatcher(queue, cfg.AppURL, log.Named("alerts"))))

		alertsServer := alerts.NewServer(redisOpt, alerts.NewProcessor(newMailer(cfg, log), log.Named("alerts")))
		if err := alertsServer.Start(); err != nil {
			return err
		}
		defer alertsServer.Shutdown()
		log.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Warn("REDIS_ADDR not set; email alerts disabled and sessions revoked in memory only")
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewPublisher(events.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic), log.Named("events"))
		defer pub.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithObserver(pub))
		log.Info("publishing ledger events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	feed := pricefeed.New(feedOpts...)
	svc := ledger.NewService(backend, feed, log.Named("ledger"), ledgerOpts...)
	hub := ticker.NewHub(feed, cfg.TickerInterval, log.Named("ticker"))
	go hub.Run(ctx)

	e := server.NewRouter(server.Deps{
		Ledger:          svc,
		Feed:            feed,
		Store:           backend,
		Tokens:          utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Revocations:     revocations,
		Ticker:          hub,
		Log:             log,
		AuthRateLimit:   cfg.AuthRateLimit,
		BootstrapSecret: cfg.AdminBootstrapSecret,
		SecureCookie:    !cfg.Development(),
	})

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newMailer(cfg config.Config, log *zap.Logger) alerts.Mailer {
	switch cfg.MailProvider {
	case config.MailPlunk:
		return alerts.NewPlunkMailer(alerts.PlunkConfig{
			APIKey:  cfg.Plunk.APIKey,
			From:    cfg.Plunk.From,
			APIURL:  cfg.Plunk.APIURL,
			ReplyTo: cfg.MailReplyTo,
		}, nil)
	case config.MailSMTP:
		return alerts.NewSMTPMailer(alerts.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			ReplyTo:  cfg.MailReplyTo,
		})
	}
	return alerts.NewLogMailer(log.Named("mail"))
}
