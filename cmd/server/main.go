package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/allenneverland/backtest-server-sub001/internal/cache"
	"github.com/allenneverland/backtest-server-sub001/internal/config"
	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/allenneverland/backtest-server-sub001/internal/messaging"
	"github.com/allenneverland/backtest-server-sub001/internal/repository"
	"github.com/allenneverland/backtest-server-sub001/internal/validation"
)

func main() {
	cfg := config.Load()
	logger := setupLogger(cfg.Logging)
	logger.Info("starting backtest cache server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr(cfg.Redis.URL),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
		PoolSize: cfg.Redis.PoolSize,
	})
	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	pingCancel()
	defer redisClient.Close()
	logger.Info("connected to redis")

	pgPool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pgPool.Close()
	logger.Info("connected to postgres")

	registry := prometheus.NewRegistry()
	metrics := cache.NewMetrics(registry)

	remote := cache.NewRedisStoreWithLimit(redisClient, metrics, cfg.Redis.OpsPerSecond, cfg.Redis.OpsBurst)
	ohlcvCache := cache.NewOHLCVCache(cfg.Cache.OHLCVCapacity, remote, cfg.Cache.DefaultTTL, metrics)
	tickCache := cache.NewTickCache(cfg.Cache.TickCapacity, remote, cfg.Cache.DefaultTTL, metrics)

	dedupRepo := repository.NewPostgresDedupRepository(pgPool)

	valCfg := validation.DefaultConfig()
	valCfg.FailOnError = cfg.Validation.FailFast
	if cfg.Validation.MaxErrorsBeforeStop > 0 {
		valCfg.MaxErrors = cfg.Validation.MaxErrorsBeforeStop
	}
	valCfg.Params["max_spread_percent"] = cfg.Validation.MaxSpreadPercent

	maxGapMillis := cfg.Validation.MaxGap.Milliseconds()

	ohlcvValidator := validation.NewTimeSeriesValidator[marketdata.OHLCVRecord](dedupRepo).
		WithItemValidator(validation.NewOHLCVValidator(valCfg)).
		WithDatabaseDedup(true).
		WithMaxGap(maxGapMillis)

	tickValidator := validation.NewTimeSeriesValidator[marketdata.TickRecord](dedupRepo).
		WithItemValidator(validation.NewTickValidator(valCfg)).
		WithDatabaseDedup(true).
		WithMaxGap(maxGapMillis)

	publisher, err := messaging.NewPublisher(messaging.PublisherConfig{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
	}, logger)
	if err != nil {
		logger.Fatalf("failed to create publisher: %v", err)
	}
	defer publisher.Close()

	handler := newCacheRequestHandler(ohlcvCache, tickCache, ohlcvValidator, tickValidator, logger)

	rpcServer, err := messaging.NewRPCServer(messaging.RPCServerConfig{
		URL:           cfg.RabbitMQ.URL,
		QueueName:     cfg.RabbitMQ.QueueName,
		Exchange:      cfg.RabbitMQ.Exchange,
		RoutingKey:    cfg.RabbitMQ.RoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
	}, handler, logger)
	if err != nil {
		logger.Fatalf("failed to create rpc server: %v", err)
	}
	if err := rpcServer.Start(ctx); err != nil {
		logger.Fatalf("failed to start rpc server: %v", err)
	}
	defer rpcServer.Stop()
	logger.Info("rpc server listening")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCtx, healthCancel := context.WithTimeout(r.Context(), time.Second)
		defer healthCancel()
		if err := redisClient.Ping(healthCtx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "redis unavailable: %v", err)
			return
		}
		if err := pgPool.Ping(healthCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "postgres unavailable: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server forced to shutdown: %v", err)
	}
	logger.Info("shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: cfg.TimestampFormat})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimestampFormat})
	}

	switch cfg.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		logger.SetOutput(os.Stdout)
	}
	return logger
}

// redisAddr strips a redis:// scheme if present, so cfg.Redis.URL may be
// given as a bare "host:port" or as "redis://host:port".
func redisAddr(url string) string {
	const scheme = "redis://"
	if len(url) > len(scheme) && url[:len(scheme)] == scheme {
		return url[len(scheme):]
	}
	return url
}
