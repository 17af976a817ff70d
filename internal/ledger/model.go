package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifica um dos dois lados de uma partida
type Side int

const (
	Side1 Side = 1
	Side2 Side = 2
)

func (s Side) Valid() bool { return s == Side1 || s == Side2 }

// Other devolve o lado oposto
func (s Side) Other() Side {
	if s == Side1 {
		return Side2
	}
	return Side1
}

// MatchState é o ciclo de vida de uma partida
type MatchState string

const (
	MatchOpen     MatchState = "OPEN"
	MatchResolved MatchState = "RESOLVED"
)

// Bettor é identificado pelo nome (chave natural)
type Bettor struct {
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Match struct {
	ID              int64           `json:"id"`
	Side1Name       string          `json:"side1_name"`
	Side2Name       string          `json:"side2_name"`
	Side1Total      decimal.Decimal `json:"side1_total"`
	Side2Total      decimal.Decimal `json:"side2_total"`
	State           MatchState      `json:"state"`
	WinningSide     *Side           `json:"winning_side,omitempty"`
	HouseCommission decimal.Decimal `json:"house_commission"`
	CreatedAt       time.Time       `json:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

// Total devolve o total apostado em um lado
func (m *Match) Total(s Side) decimal.Decimal {
	if s == Side1 {
		return m.Side1Total
	}
	return m.Side2Total
}

// SideName devolve o nome do lado
func (m *Match) SideName(s Side) string {
	if s == Side1 {
		return m.Side1Name
	}
	return m.Side2Name
}

func (m *Match) IsOpen() bool { return m.State == MatchOpen }

// Wager é uma aposta aberta; some quando a partida é resolvida
type Wager struct {
	ID         int64           `json:"id"`
	MatchID    int64           `json:"match_id"`
	BettorName string          `json:"bettor_name"`
	Amount     decimal.Decimal `json:"amount"`
	Side       Side            `json:"side"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SettlementRecord é o snapshot imutável do resultado de uma aposta
type SettlementRecord struct {
	ID          int64           `json:"id"`
	MatchID     int64           `json:"match_id"`
	Side1Name   string          `json:"side1_name"`
	Side2Name   string          `json:"side2_name"`
	BettorName  string          `json:"bettor_name"`
	Staked      decimal.Decimal `json:"staked"`
	PaidOut     decimal.Decimal `json:"paid_out"`
	ChosenSide  Side            `json:"chosen_side"`
	WinningSide Side            `json:"winning_side"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (r *SettlementRecord) Won() bool { return r.ChosenSide == r.WinningSide }

// Net é o ganho líquido do apostador nesta aposta (pago - apostado)
func (r *SettlementRecord) Net() decimal.Decimal { return r.PaidOut.Sub(r.Staked) }
