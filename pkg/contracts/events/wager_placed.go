package events

import "github.com/shopspring/decimal"

// Evento publicado pelo pool-service após o commit de uma aposta.
type WagerPlaced struct {
	EventID    string          `json:"event_id"`
	WagerID    int64           `json:"wager_id"`
	MatchID    int64           `json:"match_id"`
	Bettor     string          `json:"bettor"`
	Amount     decimal.Decimal `json:"amount"`
	Side       int             `json:"side"`
	Side1Total decimal.Decimal `json:"side1_total"` // totais da partida após a aposta
	Side2Total decimal.Decimal `json:"side2_total"`
	TsUnixMs   int64           `json:"ts_unix_ms"`
}
