package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	httpapi "github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/http"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/producer"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/repo"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/scheduler"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/service"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/ws"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/settlement"
	sharedcache "github.com/bcabanag-design/casa-apuestas-completa/internal/shared/cache"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/config"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/db"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/kafka"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/logger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("pool-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service",
		zap.String("store", cfg.StoreDriver),
		zap.String("commission_rate", cfg.CommissionRate.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Ledger: Postgres em produção, memória para rodar isolado
	var (
		store  ledger.Store
		checks []metrics.HealthFunc
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = repo.NewMemory()
		log.Warn("using in-memory ledger; data is lost on restart")
	default:
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pg); err != nil {
				log.Fatal("postgres migrate", zap.Error(err))
			}
		}
		store = repo.NewPostgres(pg)
		checks = append(checks, pg.PingContext)
	}

	engine, err := settlement.NewEngine(cfg.CommissionRate)
	if err != nil {
		log.Fatal("settlement engine", zap.Error(err))
	}

	// Redis: cache de relatório e feed ao vivo
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	// Kafka: eventos do pool, um writer para os três tópicos
	writer := kafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()
	publ := producer.NewKafkaPublisher(writer, cfg.TopicWagerPlaced, cfg.TopicMatchResolved, cfg.TopicHistoryPurged)

	// Métricas
	wagers := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_wagers_placed_total", Help: "apostas aceitas"})
	resolved := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_matches_resolved_total", Help: "partidas liquidadas"})
	publishErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "pool_publish_errors_total", Help: "falhas ao publicar eventos"})
	reportCache := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pool_report_cache_total", Help: "leituras do cache de relatório"}, []string{"result"})
	prometheus.MustRegister(wagers, resolved, publishErrors, reportCache)

	svc := service.New(log, store, engine, publ)
	svc.OnWagerPlaced = wagers.Inc
	svc.OnMatchResolved = resolved.Inc
	svc.OnPublishError = publishErrors.Inc

	view := report.NewView(log, report.NewBuilder(store), report.NewRedisCache(rdb, cfg.ReportCacheTTL))
	view.OnCacheHit = func() { reportCache.WithLabelValues("hit").Inc() }
	view.OnCacheMiss = func() { reportCache.WithLabelValues("miss").Inc() }

	// Feed ao vivo: Redis Pub/Sub -> hub -> clientes
	hub := ws.NewHub(allowOrigin(cfg.CORSOrigins))
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := httpapi.NewServer(log, svc, view)
	api.WS = hub.HandleWS
	api.CORSOrigins = cfg.CORSOrigins

	if cfg.HistoryPurgeCron != "" {
		purge := scheduler.NewHistoryPurge(ctx, log, svc)
		if err := purge.Schedule(cfg.HistoryPurgeCron); err != nil {
			log.Fatal("history purge schedule", zap.String("spec", cfg.HistoryPurgeCron), zap.Error(err))
		}
		purge.Start()
		defer purge.Stop()
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, healthAll(checks))
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}

// healthAll falha no primeiro check com erro
func healthAll(checks []metrics.HealthFunc) metrics.HealthFunc {
	return func(ctx context.Context) error {
		for _, c := range checks {
			if err := c(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// allowOrigin aplica CORS_ORIGINS ao upgrade do WebSocket
func allowOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
