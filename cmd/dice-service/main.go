package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/dice"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/config"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/logger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("dice-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	bets := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dice_bets_total", Help: "apostas de dados por resultado"}, []string{"result"})
	prometheus.MustRegister(bets)

	game := dice.NewGame(cfg.DiceStartingBalance)
	api := dice.NewServer(log, game)
	api.CORSOrigins = cfg.CORSOrigins
	api.OnBet = func(result string) { bets.WithLabelValues(result).Inc() }

	// sem dependências externas: healthz sempre ok
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("dice-service listening",
		zap.String("addr", srv.Addr),
		zap.String("starting_balance", game.Starting().StringFixed(2)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
}
