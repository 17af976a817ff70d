package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/service"
)

// Purger é a operação agendada
type Purger interface {
	PurgeResolvedHistory(ctx context.Context) (service.PurgeResult, error)
}

// HistoryPurge roda o expurgo do histórico resolvido numa expressão cron
// (ex.: "0 3 * * *" ou "@daily")
type HistoryPurge struct {
	cron    *cron.Cron
	log     *zap.Logger
	purger  Purger
	baseCtx context.Context
	timeout time.Duration
}

func NewHistoryPurge(baseCtx context.Context, log *zap.Logger, p Purger) *HistoryPurge {
	return &HistoryPurge{
		cron:    cron.New(),
		log:     log,
		purger:  p,
		baseCtx: baseCtx,
		timeout: time.Minute,
	}
}

// Schedule registra o job; spec inválida devolve erro do parser
func (h *HistoryPurge) Schedule(spec string) error {
	_, err := h.cron.AddFunc(spec, h.run)
	return err
}

func (h *HistoryPurge) run() {
	ctx, cancel := context.WithTimeout(h.baseCtx, h.timeout)
	defer cancel()
	res, err := h.purger.PurgeResolvedHistory(ctx)
	if err != nil {
		h.log.Warn("scheduled purge failed", zap.Error(err))
		return
	}
	h.log.Info("scheduled purge done",
		zap.Int64("matches", res.MatchesDeleted),
		zap.Int64("records", res.RecordsDeleted))
}

func (h *HistoryPurge) Start() {
	h.log.Info("history purge scheduler started")
	h.cron.Start()
}

// Stop espera o job em andamento terminar
func (h *HistoryPurge) Stop() {
	<-h.cron.Stop().Done()
	h.log.Info("history purge scheduler stopped")
}
