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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/api"
	"github.com/ez-dapp/gasless-server/internal/auth"
	"github.com/ez-dapp/gasless-server/internal/chain"
	"github.com/ez-dapp/gasless-server/internal/config"
	"github.com/ez-dapp/gasless-server/internal/ledger"
	"github.com/ez-dapp/gasless-server/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("config load failed", zap.Error(err))
	}

	log, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("logger init failed", zap.Error(err))
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Redis ─────────────────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping failed", zap.Error(err))
		}
		defer rdb.Close()
	}

	// ── Voucher registry ──────────────────────────────────────────────────────
	var reg voucher.Registry
	switch cfg.Registry.Backend {
	case config.BackendChain:
		onchain, err := chain.NewClient(cfg)
		if err != nil {
			log.Fatal("chain client init failed", zap.Error(err))
		}
		defer onchain.Close()
		log.Info("using on-chain voucher registry",
			zap.String("contract", onchain.ContractAddress().Hex()),
			zap.String("issuer", onchain.Issuer().Hex()),
			zap.String("chain_id", onchain.ChainID().String()),
		)
		reg = onchain
	case config.BackendRedis:
		log.Info("using redis voucher ledger", zap.String("addr", cfg.Redis.Addr))
		reg = ledger.New(rdb, log)
	}

	// ── Mediator ──────────────────────────────────────────────────────────────
	policy, _ := voucher.ParseSelectPolicy(cfg.Gasless.SelectPolicy) // validated by config.Load
	med := voucher.NewMediator(reg, log, voucher.WithSelectPolicy(policy))

	defaultAmount, _ := cfg.DefaultAmount()
	handler := api.NewHandler(med, api.Settings{
		ProgramID:          cfg.Gasless.ProgramID,
		DefaultAmount:      defaultAmount,
		DefaultDurationSec: cfg.Gasless.DefaultDurationSec,
	}, log)

	var guard *auth.Guard
	if operators, _ := cfg.Operators(); len(operators) > 0 {
		guard = auth.NewGuard(rdb, operators, log)
		log.Info("operator auth enabled", zap.Int("operators", len(operators)))
	} else {
		log.Warn("OPERATOR_ADDRESSES not set, /issue /prolong /revoke are unauthenticated")
	}

	// ── Event log ─────────────────────────────────────────────────────────────
	if cfg.Gasless.WatchEvents {
		w, ok := reg.(voucher.Watcher)
		if !ok {
			log.Fatal("WATCH_EVENTS set but registry cannot stream events", zap.String("backend", cfg.Registry.Backend))
		}
		go runEventLog(ctx, w, log)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	r := gin.New()
	r.Use(gin.Recovery(), api.LoggingMiddleware(log), api.MetricsMiddleware())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.Register(r, guard)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: cors.AllowAll().Handler(r),
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

const eventLogRetry = 5 * time.Second

// runEventLog logs every voucher lifecycle event until ctx is cancelled,
// resubscribing after a dropped subscription.
func runEventLog(ctx context.Context, w voucher.Watcher, log *zap.Logger) {
	for {
		err := followEvents(ctx, w, log)
		if ctx.Err() != nil {
			return
		}
		log.Warn("event subscription ended, retrying", zap.Error(err), zap.Duration("in", eventLogRetry))
		select {
		case <-time.After(eventLogRetry):
		case <-ctx.Done():
			return
		}
	}
}

func followEvents(ctx context.Context, w voucher.Watcher, log *zap.Logger) error {
	sub, err := w.Watch(ctx, voucher.EventFilter{})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return <-sub.Err()
			}
			logEvent(log, ev)
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func logEvent(log *zap.Logger, ev voucher.Event) {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.String("voucher", ev.ID.Hex()),
		zap.String("account", ev.Account.Hex()),
	}
	if ev.Balance != nil {
		fields = append(fields, zap.String("balance", ev.Balance.String()))
	}
	if ev.Expiry != 0 {
		fields = append(fields, zap.Time("expiry", time.Unix(ev.Expiry, 0)))
	}
	log.Info("voucher event", fields...)
}
