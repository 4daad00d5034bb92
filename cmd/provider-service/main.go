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
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/games/catalog"
	"github.com/radieske/game-provider-platform/internal/settlement"
	shttp "github.com/radieske/game-provider-platform/internal/settlement/http"
	"github.com/radieske/game-provider-platform/internal/settlement/producer"
	srepo "github.com/radieske/game-provider-platform/internal/settlement/repo"
	"github.com/radieske/game-provider-platform/internal/shared/auth"
	"github.com/radieske/game-provider-platform/internal/shared/cache"
	"github.com/radieske/game-provider-platform/internal/shared/config"
	"github.com/radieske/game-provider-platform/internal/shared/db"
	"github.com/radieske/game-provider-platform/internal/shared/idempotency"
	"github.com/radieske/game-provider-platform/internal/shared/kafka"
	"github.com/radieske/game-provider-platform/internal/shared/lock"
	"github.com/radieske/game-provider-platform/internal/shared/logger"
	"github.com/radieske/game-provider-platform/internal/shared/metrics"
	"github.com/radieske/game-provider-platform/internal/wallet"
	wrepo "github.com/radieske/game-provider-platform/internal/wallet/repo"
)

const roundStream = "ROUNDS"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "provider-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres: rounds, sessions, ledger and idempotency records
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

	// Redis: per-player play lock
	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	operators, err := auth.ParseOperators(cfg.OperatorKeys)
	if err != nil {
		log.Fatal("operator keys", zap.Error(err))
	}
	if len(operators) == 0 {
		log.Warn("no operators configured, every request will be rejected")
	}

	registry, err := catalog.Default()
	if err != nil {
		log.Fatal("game catalog", zap.Error(err))
	}

	pub, closePub, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatal("event bus", zap.Error(err), zap.String("bus", cfg.EventBus))
	}
	defer closePub()

	reg := prometheus.DefaultRegisterer
	ledger := wallet.NewLedger(wrepo.NewPostgres(pg), log, wallet.NewMetrics(reg))
	svc := settlement.NewService(settlement.Deps{
		Log:       log,
		Registry:  registry,
		Rounds:    srepo.NewPostgres(pg),
		Ledger:    ledger,
		Locker:    lock.NewRedis(rdb),
		Guard:     idempotency.NewGuard(idempotency.NewPostgres(pg), log),
		Publisher: pub,
		Metrics:   settlement.NewMetrics(reg),
		LockTTL:   cfg.LockTTL,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(auth.NewVerifier(operators, cfg.SignatureMaxSkew, log).Middleware)
	shttp.NewServer(log, svc).Routes(r)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, prometheus.DefaultGatherer,
		func(ctx context.Context) error {
			if err := pg.PingContext(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
		func(err error) { log.Error("metrics srv", zap.Error(err)) })
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.Int("operators", len(operators)))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
	log.Info("stopped")
}

func newPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (settlement.Publisher, func(), error) {
	switch cfg.EventBus {
	case "kafka":
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
		log.Info("publishing to kafka", zap.String("topic", cfg.TopicRoundSettled))
		return producer.NewKafkaPublisher(w), func() { _ = w.Close() }, nil
	case "nats":
		nc, err := nats.Connect(cfg.NatsURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, nil, err
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		if err := producer.EnsureStream(ctx, js, roundStream, cfg.TopicRoundSettled); err != nil {
			nc.Close()
			return nil, nil, err
		}
		log.Info("publishing to jetstream", zap.String("stream", roundStream), zap.String("subject", cfg.TopicRoundSettled))
		return producer.NewNATSPublisher(js, cfg.TopicRoundSettled), func() { _ = nc.Drain() }, nil
	default:
		log.Warn("event bus disabled, round_settled is not published")
		return nil, func() {}, nil
	}
}
