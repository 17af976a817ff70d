package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/ws"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-simulator/poolclient"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-simulator/sim"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/config"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/logger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/metrics"
	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

var (
	simWagers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_wagers_placed_total",
		Help: "Apostas aceitas pelo pool-service",
	})
	simRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_wagers_rejected_total",
		Help: "Apostas recusadas por saldo insuficiente",
	})
	simRounds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_rounds_resolved_total",
		Help: "Partidas simuladas resolvidas",
	})
	feedUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_feed_updates_total",
		Help: "Atualizações recebidas pelo feed /ws",
	}, []string{"type"})
)

// feedURL troca o esquema http(s) por ws(s) e aponta para /ws
func feedURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	}
	return base + "/ws"
}

func main() {
	cfg := config.Load()
	log, err := logger.New("pool-simulator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(simWagers, simRejected, simRounds, feedUpdates)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := poolclient.New(cfg.PoolURL)
	s := sim.New(log, client, cfg.SimBettors)
	s.OnWager = simWagers.Inc
	s.OnReject = simRejected.Inc
	s.OnResolve = simRounds.Inc

	watcher := &sim.FeedWatcher{
		URL:     feedURL(cfg.PoolURL),
		Log:     log,
		MatchID: ws.AllMatches,
		OnUpdate: func(u events.PoolUpdate) {
			feedUpdates.WithLabelValues(u.Type).Inc()
			log.Debug("feed update", zap.String("type", u.Type), zap.Int64("match_id", u.MatchID))
		},
	}
	go watcher.Start(ctx)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("pool simulator running",
		zap.String("pool_url", cfg.PoolURL),
		zap.Strings("bettors", cfg.SimBettors),
		zap.Duration("interval", cfg.SimInterval))
	if err := s.Run(ctx, cfg.SimInterval); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("simulator stopped", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(context.Background())
	log.Info("shutdown complete")
}
