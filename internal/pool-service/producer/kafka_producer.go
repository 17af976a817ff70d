package producer

import (
	"context"
	"strconv"
	"time"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/kafka"
	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do pool; a chave é o id da partida
// para manter a ordem dos eventos de uma mesma partida
type KafkaPublisher struct {
	Writer kafka.MessageWriter

	TopicWagerPlaced   string
	TopicMatchResolved string
	TopicHistoryPurged string
}

func NewKafkaPublisher(w kafka.MessageWriter, wagerTopic, resolvedTopic, purgedTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer:             w,
		TopicWagerPlaced:   wagerTopic,
		TopicMatchResolved: resolvedTopic,
		TopicHistoryPurged: purgedTopic,
	}
}

func (p *KafkaPublisher) PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Writer, p.TopicWagerPlaced, matchKey(e.MatchID), e)
}

func (p *KafkaPublisher) PublishMatchResolved(ctx context.Context, e events.MatchResolved) error {
	return kafka.WriteJSON(ctx, p.Writer, p.TopicMatchResolved, matchKey(e.MatchID), e)
}

func (p *KafkaPublisher) PublishHistoryPurged(ctx context.Context, e events.HistoryPurged) error {
	return kafka.WriteJSON(ctx, p.Writer, p.TopicHistoryPurged, "purge", e)
}

func matchKey(id int64) string { return strconv.FormatInt(id, 10) }
