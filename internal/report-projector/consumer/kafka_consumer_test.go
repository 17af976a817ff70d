package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

// ReadMessage entrega as mensagens em ordem e cancela o contexto ao esvaziar
func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (report.Snapshot, error) {
	f.calls++
	return report.Snapshot{}, f.err
}

type published struct {
	channel string
	payload []byte
}

type fakeBroadcaster struct {
	out []published
	err error
}

func (f *fakeBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	f.out = append(f.out, published{channel, payload})
	return f.err
}

var testTopics = Topics{WagerPlaced: "wp", MatchResolved: "mr", HistoryPurged: "hp"}

func message(t *testing.T, topic string, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Topic: topic, Value: b}
}

func TestRun_RefreshesAndBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		message(t, "wp", events.WagerPlaced{MatchID: 3, Bettor: "ana"}),
		message(t, "mr", events.MatchResolved{MatchID: 3, WinningSide: 1}),
		message(t, "hp", events.HistoryPurged{MatchesDeleted: 1}),
	}}
	refresher := &fakeRefresher{}
	bc := &fakeBroadcaster{}
	var consumed, refreshed, broadcast int

	p := &Processor{
		Log:         zap.NewNop(),
		Reader:      reader,
		Topics:      testTopics,
		Reports:     refresher,
		Broadcaster: bc,
		Channel:     "pool_updates_broadcast",
		OnConsumed:  func() { consumed++ },
		OnRefreshed: func() { refreshed++ },
		OnBroadcast: func() { broadcast++ },
	}
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run err=%v", err)
	}

	if consumed != 3 || refreshed != 3 || broadcast != 3 {
		t.Errorf("consumed=%d refreshed=%d broadcast=%d", consumed, refreshed, broadcast)
	}
	wantTypes := []string{events.TypeWagerPlaced, events.TypeMatchResolved, events.TypeHistoryPurged}
	wantIDs := []int64{3, 3, 0}
	for i, pub := range bc.out {
		if pub.channel != "pool_updates_broadcast" {
			t.Errorf("channel=%q", pub.channel)
		}
		var upd events.PoolUpdate
		if err := json.Unmarshal(pub.payload, &upd); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if upd.Type != wantTypes[i] || upd.MatchID != wantIDs[i] || len(upd.Payload) == 0 {
			t.Errorf("update[%d]=%+v", i, upd)
		}
	}
}

func TestHandle_InvalidMessages(t *testing.T) {
	refresher := &fakeRefresher{}
	bc := &fakeBroadcaster{}
	stages := map[string]int{}
	p := &Processor{
		Log:         zap.NewNop(),
		Topics:      testTopics,
		Reports:     refresher,
		Broadcaster: bc,
		OnError:     func(stage string) { stages[stage]++ },
	}

	p.Handle(context.Background(), "wp", []byte("{not json"))
	p.Handle(context.Background(), "other", []byte(`{}`))

	if stages["decode"] != 2 {
		t.Errorf("decode errors=%d want 2", stages["decode"])
	}
	if refresher.calls != 0 || len(bc.out) != 0 {
		t.Errorf("invalid messages should not refresh or broadcast")
	}
}

func TestHandle_RefreshFailureStillBroadcasts(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("db down")}
	bc := &fakeBroadcaster{}
	stages := map[string]int{}
	p := &Processor{
		Log:         zap.NewNop(),
		Topics:      testTopics,
		Reports:     refresher,
		Broadcaster: bc,
		OnError:     func(stage string) { stages[stage]++ },
	}
	b, _ := json.Marshal(events.WagerPlaced{MatchID: 9})
	p.Handle(context.Background(), "wp", b)

	if stages["refresh"] != 1 || len(bc.out) != 1 {
		t.Errorf("stages=%v broadcasts=%d", stages, len(bc.out))
	}
}

type flakyReader struct {
	fails  int
	cancel context.CancelFunc
}

func (f *flakyReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.fails > 0 {
		f.fails--
		return kafka.Message{}, errors.New("broker unavailable")
	}
	f.cancel()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func TestRun_ReadErrorsBackOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reads := 0
	p := &Processor{
		Log:     zap.NewNop(),
		Reader:  &flakyReader{fails: 2, cancel: cancel},
		Topics:  testTopics,
		Reports: &fakeRefresher{},
		OnError: func(stage string) {
			if stage == "read" {
				reads++
			}
		},
		Backoff: time.Millisecond,
	}
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("run err=%v", err)
	}
	if reads != 2 {
		t.Errorf("read errors=%d want 2", reads)
	}
}
