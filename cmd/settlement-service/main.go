package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	settlementcache "github.com/radieske/parlay-settlement/internal/settlement-service/cache"
	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
	httpapi "github.com/radieske/parlay-settlement/internal/settlement-service/http"
	"github.com/radieske/parlay-settlement/internal/settlement-service/metrics"
	"github.com/radieske/parlay-settlement/internal/settlement-service/notify"
	"github.com/radieske/parlay-settlement/internal/settlement-service/producer"
	"github.com/radieske/parlay-settlement/internal/settlement-service/pubsub"
	"github.com/radieske/parlay-settlement/internal/settlement-service/repo"
	"github.com/radieske/parlay-settlement/internal/settlement-service/scheduler"
	"github.com/radieske/parlay-settlement/internal/settlement-service/ws"
	"github.com/radieske/parlay-settlement/internal/shared/cache"
	"github.com/radieske/parlay-settlement/internal/shared/config"
	"github.com/radieske/parlay-settlement/internal/shared/db"
	"github.com/radieske/parlay-settlement/internal/shared/kafka"
	"github.com/radieske/parlay-settlement/internal/shared/logger"
	sharedmetrics "github.com/radieske/parlay-settlement/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// conecta com db Postgres; pool cobre os workers da engine e as consultas da API
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.SettlementWorkers+4)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	if cfg.AutoMigrate {
		if err := repo.EnsureSchema(ctx, pg); err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
		log.Info("schema ensured")
	}

	// conecta com cache Redis
	redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSlipSettled)
	defer writer.Close()
	log.Info("kafka writer ready", zap.String("topic", cfg.TopicSlipSettled))

	store := repo.NewPostgres(pg)
	summaries := settlementcache.New(redisClient, cfg.SummaryTTL)
	m := metrics.NewSettlement(prometheus.DefaultRegisterer)

	notifier := &notify.Notifier{
		Log:       log,
		Kafka:     producer.NewKafkaPublisher(writer, cfg.TopicSlipSettled),
		Redis:     pubsub.NewRedisBroadcaster(redisClient, cfg.RedisSettledChannel),
		OnFailure: func(sink string) { m.ObserveError("notify_" + sink) },
	}

	eng := engine.New(log, store, engine.Config{Workers: cfg.SettlementWorkers, MaxSlips: cfg.MaxSlipsPerPass})
	eng.OnSettled = notifier.SlipSettled
	eng.OnError = m.ObserveError
	eng.OnPass = func(s engine.Summary) {
		m.ObservePass(s)
		sctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := summaries.SaveLast(sctx, s); err != nil {
			log.Warn("summary cache write failed", zap.String("passId", s.PassID), zap.Error(err))
		}
	}

	// WebSocket: liquidações chegam pelo Redis Pub/Sub (inclusive as do worker)
	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	if err := ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisSettledChannel, hub); err != nil {
		log.Fatal("redis subscribe failed", zap.Error(err))
	}

	api := &httpapi.API{
		Log:       log,
		Settler:   eng,
		Summaries: summaries,
		Stats:     store,
		Token:     cfg.SettlementToken,
		WS:        hub.HandleWS,
		WSToken:   cfg.WSToken,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	metricsSrv := sharedmetrics.StartMetricsServer(log, cfg.MetricsPort,
		sharedmetrics.HealthCheck{Name: "postgres", Fn: store.Ping},
		sharedmetrics.HealthCheck{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	ticker := &scheduler.Ticker{Log: log, Settler: eng, Interval: cfg.SettlementInterval}
	go ticker.Run(ctx)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-service stopped")
}
