package sim

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/ws"
	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

// FeedWatcher acompanha o feed /ws do pool-service e entrega cada atualização
// a OnUpdate. Reconecta sozinho depois de Backoff.
type FeedWatcher struct {
	URL      string
	Log      *zap.Logger
	MatchID  int64 // ws.AllMatches recebe todas
	OnUpdate func(events.PoolUpdate)
	Backoff  time.Duration
}

// Start bloqueia até ctx terminar
func (f *FeedWatcher) Start(ctx context.Context) {
	backoff := f.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		err := f.connectAndListen(ctx)
		if ctx.Err() != nil {
			f.Log.Info("context canceled, stopping feed watcher")
			return
		}
		if err != nil {
			f.Log.Warn("feed connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (f *FeedWatcher) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	// ReadMessage não respeita ctx; fechar a conexão destrava a leitura
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(ws.ClientMsg{Type: "subscribe", MatchID: f.MatchID}); err != nil {
		return err
	}
	f.Log.Info("connected to pool feed", zap.String("url", f.URL), zap.Int64("match_id", f.MatchID))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		var up events.PoolUpdate
		if err := json.Unmarshal(message, &up); err != nil {
			f.Log.Warn("invalid feed message", zap.Error(err))
			continue
		}
		if up.Type == "" || up.Type == "pong" {
			continue
		}
		if f.OnUpdate != nil {
			f.OnUpdate(up)
		}
	}
}
