package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	settlementcache "github.com/radieske/parlay-settlement/internal/settlement-service/cache"
	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
	"github.com/radieske/parlay-settlement/internal/settlement-service/metrics"
	"github.com/radieske/parlay-settlement/internal/settlement-service/notify"
	"github.com/radieske/parlay-settlement/internal/settlement-service/producer"
	"github.com/radieske/parlay-settlement/internal/settlement-service/pubsub"
	"github.com/radieske/parlay-settlement/internal/settlement-service/repo"
	"github.com/radieske/parlay-settlement/internal/settlement-worker/consumer"
	sharedcache "github.com/radieske/parlay-settlement/internal/shared/cache"
	"github.com/radieske/parlay-settlement/internal/shared/config"
	"github.com/radieske/parlay-settlement/internal/shared/db"
	"github.com/radieske/parlay-settlement/internal/shared/kafka"
	"github.com/radieske/parlay-settlement/internal/shared/logger"
	sharedmetrics "github.com/radieske/parlay-settlement/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.SettlementWorkers+2)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group settlement-worker; DLQ recebe payloads que não decodificam
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchConcluded, "settlement-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchConcludedDLQ)
	defer dlq.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSlipSettled)
	defer settledWriter.Close()

	// Métricas Prometheus do consumo; as da engine ficam em metrics.Settlement
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_messages_consumed_total", Help: "mensagens match_concluded consumidas"})
	triggered := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_passes_triggered_total", Help: "passadas disparadas por evento"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, triggered, errorsBy)
	m := metrics.NewSettlement(prometheus.DefaultRegisterer)

	store := repo.NewPostgres(pg)
	summaries := settlementcache.New(redisClient, cfg.SummaryTTL)

	notifier := &notify.Notifier{
		Log:       log,
		Kafka:     producer.NewKafkaPublisher(settledWriter, cfg.TopicSlipSettled),
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

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		DLQ:        dlq,
		Settler:    eng,
		OnConsumed: func() { consumed.Inc() },
		OnSettled:  func() { triggered.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := sharedmetrics.StartMetricsServer(log, cfg.MetricsPort,
		sharedmetrics.HealthCheck{Name: "postgres", Fn: store.Ping},
		sharedmetrics.HealthCheck{Name: "redis", Fn: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("settlement-worker started", zap.String("topic", cfg.TopicMatchConcluded))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
