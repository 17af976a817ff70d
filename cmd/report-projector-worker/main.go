package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/repo"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report-projector/consumer"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report-projector/pubsub"
	sharedcache "github.com/bcabanag-design/casa-apuestas-completa/internal/shared/cache"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/config"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/db"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/kafka"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/logger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("report-projector-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// leitura do ledger (somente consultas) e Redis para cache/broadcast
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	view := report.NewView(log, report.NewBuilder(repo.NewPostgres(pg)), report.NewRedisCache(redisClient, cfg.ReportCacheTTL))

	reader := kafka.NewGroupReader(cfg.KafkaBrokers, "report-projector",
		cfg.TopicWagerPlaced, cfg.TopicMatchResolved, cfg.TopicHistoryPurged)
	defer reader.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "report_proj_messages_consumed_total", Help: "mensagens consumidas"})
	refreshed := prometheus.NewCounter(prometheus.CounterOpts{Name: "report_proj_snapshots_total", Help: "snapshots de relatório remontados"})
	broadcast := prometheus.NewCounter(prometheus.CounterOpts{Name: "report_proj_broadcasts_total", Help: "atualizações publicadas no pub/sub"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "report_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, refreshed, broadcast, errorsBy)

	proc := &consumer.Processor{
		Log:    log,
		Reader: reader,
		Topics: consumer.Topics{
			WagerPlaced:   cfg.TopicWagerPlaced,
			MatchResolved: cfg.TopicMatchResolved,
			HistoryPurged: cfg.TopicHistoryPurged,
		},
		Reports:     view,
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		OnConsumed:  consumed.Inc,
		OnRefreshed: refreshed.Inc,
		OnBroadcast: broadcast.Inc,
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("report-projector started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("report-projector stopped")
}
