package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/gateway"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/config"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("api-gateway", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	router, err := gateway.NewRouter(gateway.Targets{Pool: cfg.PoolURL, Dice: cfg.DiceURL}, cfg.CORSOrigins)
	if err != nil {
		log.Fatal("gateway targets", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("api-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("pool", cfg.PoolURL),
		zap.String("dice", cfg.DiceURL))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
