package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout é o resultado de uma aposta na liquidação
type Payout struct {
	Bettor  string          `json:"bettor"`
	Staked  decimal.Decimal `json:"staked"`
	PaidOut decimal.Decimal `json:"paid_out"`
	Side    int             `json:"side"`
}

// Evento publicado pelo pool-service quando uma partida é resolvida.
type MatchResolved struct {
	EventID         string          `json:"event_id"`
	MatchID         int64           `json:"match_id"`
	Side1Name       string          `json:"side1_name"`
	Side2Name       string          `json:"side2_name"`
	WinningSide     int             `json:"winning_side"`
	Side1Total      decimal.Decimal `json:"side1_total"`
	Side2Total      decimal.Decimal `json:"side2_total"`
	HouseCommission decimal.Decimal `json:"house_commission"`
	Payouts         []Payout        `json:"payouts"`
	Ts              time.Time       `json:"ts"`
}
