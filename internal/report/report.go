package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
)

// Resultado de uma aposta liquidada no relatório detalhado
const (
	ResultWon  = "WON"
	ResultLost = "LOST"
)

// BettorBalance resume a atividade liquidada de um apostador
type BettorBalance struct {
	Name          string          `json:"name"`
	FinalBalance  decimal.Decimal `json:"final_balance"`
	TotalStaked   decimal.Decimal `json:"total_staked"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	Net           decimal.Decimal `json:"net"`
}

// MatchLine é uma partida resolvida com o nome do vencedor e a comissão retida
type MatchLine struct {
	MatchID         int64           `json:"match_id"`
	Side1Name       string          `json:"side1_name"`
	Side2Name       string          `json:"side2_name"`
	WinnerName      string          `json:"winner_name"`
	HouseCommission decimal.Decimal `json:"house_commission"`
}

// WagerLine é uma linha do relatório detalhado de apostas liquidadas
type WagerLine struct {
	MatchID    int64           `json:"match_id"`
	Bettor     string          `json:"bettor"`
	MatchName  string          `json:"match_name"`
	ChosenSide int             `json:"chosen_side"`
	ChosenName string          `json:"chosen_name"`
	Result     string          `json:"result"`
	Staked     decimal.Decimal `json:"staked"`
	PaidOut    decimal.Decimal `json:"paid_out"`
	Net        decimal.Decimal `json:"net"`
}

// Snapshot é o relatório completo, a unidade guardada em cache
type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Balances    []BettorBalance `json:"balances"`
	HouseProfit decimal.Decimal `json:"house_profit"`
	Matches     []MatchLine     `json:"matches"`
	Wagers      []WagerLine     `json:"wagers"`
}

// Builder monta relatórios apenas com consultas de leitura do ledger
type Builder struct {
	Store ledger.Reader
	Now   func() time.Time
}

func NewBuilder(store ledger.Reader) *Builder {
	return &Builder{Store: store, Now: time.Now}
}

func (b *Builder) Build(ctx context.Context) (Snapshot, error) {
	balances, err := b.Balances(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	profit, err := b.Store.HouseProfit(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("house profit: %w", err)
	}
	matches, err := b.Matches(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	wagers, err := b.DetailedWagers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		GeneratedAt: b.Now().UTC(),
		Balances:    balances,
		HouseProfit: profit,
		Matches:     matches,
		Wagers:      wagers,
	}, nil
}

// Balances devolve saldo final, total apostado, total retornado e líquido por apostador
func (b *Builder) Balances(ctx context.Context) ([]BettorBalance, error) {
	totals, err := b.Store.BettorTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("bettor totals: %w", err)
	}
	out := make([]BettorBalance, 0, len(totals))
	for _, t := range totals {
		out = append(out, BettorBalance{
			Name:          t.Name,
			FinalBalance:  t.Balance,
			TotalStaked:   t.TotalStaked,
			TotalReturned: t.TotalPaidOut,
			Net:           t.TotalPaidOut.Sub(t.TotalStaked),
		})
	}
	return out, nil
}

// Matches lista as partidas resolvidas
func (b *Builder) Matches(ctx context.Context) ([]MatchLine, error) {
	ms, err := b.Store.ListMatches(ctx, ledger.MatchResolved)
	if err != nil {
		return nil, fmt.Errorf("resolved matches: %w", err)
	}
	out := make([]MatchLine, 0, len(ms))
	for _, m := range ms {
		line := MatchLine{
			MatchID:         m.ID,
			Side1Name:       m.Side1Name,
			Side2Name:       m.Side2Name,
			HouseCommission: m.HouseCommission,
		}
		if m.WinningSide != nil {
			line.WinnerName = m.SideName(*m.WinningSide)
		}
		out = append(out, line)
	}
	return out, nil
}

// DetailedWagers lista cada aposta liquidada, partidas mais recentes primeiro
func (b *Builder) DetailedWagers(ctx context.Context) ([]WagerLine, error) {
	recs, err := b.Store.ListSettlementRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement records: %w", err)
	}
	out := make([]WagerLine, 0, len(recs))
	for _, r := range recs {
		chosen := r.Side1Name
		if r.ChosenSide == ledger.Side2 {
			chosen = r.Side2Name
		}
		result := ResultLost
		if r.Won() {
			result = ResultWon
		}
		out = append(out, WagerLine{
			MatchID:    r.MatchID,
			Bettor:     r.BettorName,
			MatchName:  r.Side1Name + " vs " + r.Side2Name,
			ChosenSide: int(r.ChosenSide),
			ChosenName: chosen,
			Result:     result,
			Staked:     r.Staked,
			PaidOut:    r.PaidOut,
			Net:        r.Net(),
		})
	}
	return out, nil
}
