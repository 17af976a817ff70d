package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter cria um writer sem tópico fixo; o tópico vai em cada mensagem
func NewWriter(brokers string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:               &kafka.Hash{}, // mesma chave (match id) -> mesma partição
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
	}
}

// NewGroupReader consome vários tópicos dentro do mesmo consumer group
func NewGroupReader(brokers string, groupID string, topics ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(brokers, ","),
		GroupID:        groupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// MessageWriter é satisfeito por *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// WriteJSON serializa payload e envia para topic
func WriteJSON(ctx context.Context, w MessageWriter, topic string, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	}

	return w.WriteMessages(ctx, msg)
}

// MessageReader é satisfeito por *kafka.Reader
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// ReadNext devolve a próxima mensagem com o tópico de origem
func ReadNext(ctx context.Context, r MessageReader) (topic string, value []byte, err error) {
	m, err := r.ReadMessage(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("read kafka message: %w", err)
	}
	return m.Topic, m.Value, nil
}
