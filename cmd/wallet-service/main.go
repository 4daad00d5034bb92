package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/shared/auth"
	"github.com/radieske/game-provider-platform/internal/shared/config"
	"github.com/radieske/game-provider-platform/internal/shared/db"
	"github.com/radieske/game-provider-platform/internal/shared/idempotency"
	"github.com/radieske/game-provider-platform/internal/shared/logger"
	"github.com/radieske/game-provider-platform/internal/shared/metrics"
	"github.com/radieske/game-provider-platform/internal/wallet"
	whttp "github.com/radieske/game-provider-platform/internal/wallet/http"
	wrepo "github.com/radieske/game-provider-platform/internal/wallet/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "wallet-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pg, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	operators, err := auth.ParseOperators(cfg.OperatorKeys)
	if err != nil {
		log.Fatal("operator keys", zap.Error(err))
	}

	ledger := wallet.NewLedger(wrepo.NewPostgres(pg), log, wallet.NewMetrics(prometheus.DefaultRegisterer))
	api := whttp.NewServer(log, ledger, idempotency.NewGuard(idempotency.NewPostgres(pg), log))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(auth.NewVerifier(operators, cfg.SignatureMaxSkew, log).Middleware)
	api.Routes(r)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, prometheus.DefaultGatherer,
		func(ctx context.Context) error { return pg.PingContext(ctx) },
		func(err error) { log.Error("metrics srv", zap.Error(err)) })
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
}
