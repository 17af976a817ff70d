package events

import "time"

// Evento publicado quando o histórico de partidas resolvidas é apagado.
type HistoryPurged struct {
	EventID        string    `json:"event_id"`
	MatchesDeleted int64     `json:"matches_deleted"`
	RecordsDeleted int64     `json:"records_deleted"`
	Ts             time.Time `json:"ts"`
}
