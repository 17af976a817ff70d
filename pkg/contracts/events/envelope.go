package events

import "encoding/json"

// Tipos usados no campo Type do PoolUpdate
const (
	TypeWagerPlaced   = "wager_placed"
	TypeMatchResolved = "match_resolved"
	TypeHistoryPurged = "history_purged"
)

// PoolUpdate é o payload repassado via Redis Pub/Sub para os clientes WebSocket
type PoolUpdate struct {
	Type    string          `json:"type"`
	MatchID int64           `json:"matchId"`
	Payload json.RawMessage `json:"payload"`
}
