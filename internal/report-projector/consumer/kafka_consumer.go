package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/kafka"
	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

// Refresher remonta o relatório em cache
type Refresher interface {
	Refresh(ctx context.Context) (report.Snapshot, error)
}

// Broadcaster publica no Redis Pub/Sub
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Topics liga cada tópico Kafka ao tipo de evento
type Topics struct {
	WagerPlaced   string
	MatchResolved string
	HistoryPurged string
}

// Processor consome os eventos do pool, remonta o snapshot de relatório
// e repassa a atualização para o feed ao vivo
type Processor struct {
	Log         *zap.Logger
	Reader      kafka.MessageReader
	Topics      Topics
	Reports     Refresher
	Broadcaster Broadcaster
	Channel     string

	OnConsumed  func()
	OnRefreshed func()
	OnBroadcast func()
	OnError     func(stage string)

	// pausa após falha de leitura
	Backoff time.Duration
}

// Run consome até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	backoff := p.Backoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		topic, value, err := kafka.ReadNext(ctx, p.Reader)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, topic, value)
	}
}

// Handle processa uma mensagem; erros só geram log e métrica
func (p *Processor) Handle(ctx context.Context, topic string, value []byte) {
	upd, err := p.decode(topic, value)
	if err != nil {
		p.Log.Warn("invalid message", zap.String("topic", topic), zap.Error(err))
		p.fail("decode")
		return
	}

	if _, err := p.Reports.Refresh(ctx); err != nil {
		p.Log.Warn("report refresh failed", zap.Error(err))
		p.fail("refresh")
	} else if p.OnRefreshed != nil {
		p.OnRefreshed()
	}

	if p.Broadcaster == nil {
		return
	}
	b, _ := json.Marshal(upd)
	pctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := p.Broadcaster.Publish(pctx, p.Channel, b); err != nil {
		p.Log.Warn("ws broadcast publish failed", zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
}

// decode valida o payload e monta o PoolUpdate repassado aos clientes
func (p *Processor) decode(topic string, value []byte) (events.PoolUpdate, error) {
	upd := events.PoolUpdate{Payload: json.RawMessage(value)}
	switch topic {
	case p.Topics.WagerPlaced:
		var e events.WagerPlaced
		if err := json.Unmarshal(value, &e); err != nil {
			return upd, err
		}
		upd.Type, upd.MatchID = events.TypeWagerPlaced, e.MatchID
	case p.Topics.MatchResolved:
		var e events.MatchResolved
		if err := json.Unmarshal(value, &e); err != nil {
			return upd, err
		}
		upd.Type, upd.MatchID = events.TypeMatchResolved, e.MatchID
	case p.Topics.HistoryPurged:
		var e events.HistoryPurged
		if err := json.Unmarshal(value, &e); err != nil {
			return upd, err
		}
		upd.Type = events.TypeHistoryPurged
	default:
		return upd, fmt.Errorf("unexpected topic %q", topic)
	}
	return upd, nil
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
