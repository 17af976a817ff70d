package settlement

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
)

// ErrTotalsMismatch indica que as apostas abertas não batem com os totais da partida
var ErrTotalsMismatch = errors.New("wager totals do not match match totals")

var (
	one  = decimal.NewFromInt(1)
	cent = decimal.New(1, -ledger.CurrencyPlaces)
)

// Engine calcula a liquidação de uma partida: comissão da casa sobre o lado perdedor
// e distribuição pro-rata do restante entre as apostas vencedoras.
type Engine struct {
	rate decimal.Decimal
}

// NewEngine valida a taxa de comissão (0 <= rate <= 1)
func NewEngine(rate decimal.Decimal) (*Engine, error) {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return nil, fmt.Errorf("commission rate %s out of range [0,1]", rate.String())
	}
	return &Engine{rate: rate}, nil
}

func (e *Engine) Rate() decimal.Decimal { return e.rate }

// Credit é o valor a creditar no saldo de um apostador
type Credit struct {
	BettorName string
	Amount     decimal.Decimal
}

// Outcome é o resultado completo da liquidação, pronto para ser persistido
type Outcome struct {
	MatchID         int64
	WinningSide     ledger.Side
	WinnerTotal     decimal.Decimal
	LoserTotal      decimal.Decimal
	HouseCommission decimal.Decimal
	WinnerBonusPool decimal.Decimal
	Distributable   decimal.Decimal

	// Records: vencedoras primeiro, depois perdedoras, cada grupo na ordem das apostas
	Records []ledger.SettlementRecord
	// Credits agregados por apostador, ordenados por nome
	Credits []Credit
}

// Unbalanced indica totais diferentes entre os lados (só informativo)
func (o *Outcome) Unbalanced() bool { return !o.WinnerTotal.Equal(o.LoserTotal) }

// TotalPaidOut soma os pagamentos dos registros
func (o *Outcome) TotalPaidOut() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range o.Records {
		sum = sum.Add(r.PaidOut)
	}
	return sum
}

// Settle calcula a liquidação de m com vencedor winner sobre as apostas abertas.
// Não altera nada; quem chama persiste o Outcome numa única transação.
func (e *Engine) Settle(m ledger.Match, wagers []ledger.Wager, winner ledger.Side) (*Outcome, error) {
	if !winner.Valid() {
		return nil, fmt.Errorf("winning side %d: %w", winner, ledger.ErrInvalidSide)
	}
	if !m.IsOpen() {
		return nil, fmt.Errorf("match %d: %w", m.ID, ledger.ErrAlreadyResolved)
	}

	var winning, losing []ledger.Wager
	sums := map[ledger.Side]decimal.Decimal{ledger.Side1: decimal.Zero, ledger.Side2: decimal.Zero}
	for _, w := range wagers {
		if w.MatchID != m.ID || !w.Side.Valid() {
			return nil, fmt.Errorf("wager %d: %w", w.ID, ErrTotalsMismatch)
		}
		sums[w.Side] = sums[w.Side].Add(w.Amount)
		if w.Side == winner {
			winning = append(winning, w)
		} else {
			losing = append(losing, w)
		}
	}
	if !sums[ledger.Side1].Equal(m.Side1Total) || !sums[ledger.Side2].Equal(m.Side2Total) {
		return nil, fmt.Errorf("match %d: side1 %s/%s side2 %s/%s: %w", m.ID,
			sums[ledger.Side1], m.Side1Total, sums[ledger.Side2], m.Side2Total, ErrTotalsMismatch)
	}

	out := &Outcome{
		MatchID:     m.ID,
		WinningSide: winner,
		WinnerTotal: m.Total(winner),
		LoserTotal:  m.Total(winner.Other()),
	}

	if out.WinnerTotal.IsZero() {
		// ninguém para receber: todo o lado perdedor fica com a casa
		out.HouseCommission = out.LoserTotal
		out.WinnerBonusPool = decimal.Zero
		out.Distributable = decimal.Zero
	} else {
		out.HouseCommission = ledger.RoundCurrency(out.LoserTotal.Mul(e.rate))
		out.WinnerBonusPool = out.LoserTotal.Sub(out.HouseCommission)
		out.Distributable = out.WinnerTotal.Add(out.WinnerBonusPool)
	}

	payouts := distribute(winning, out.WinnerTotal, out.Distributable)

	credits := make(map[string]decimal.Decimal)
	for i, w := range winning {
		out.Records = append(out.Records, record(m, w, winner, payouts[i]))
		credits[w.BettorName] = credits[w.BettorName].Add(payouts[i])
	}
	for _, w := range losing {
		out.Records = append(out.Records, record(m, w, winner, decimal.Zero))
	}

	for name, amt := range credits {
		out.Credits = append(out.Credits, Credit{BettorName: name, Amount: amt})
	}
	sort.Slice(out.Credits, func(i, j int) bool { return out.Credits[i].BettorName < out.Credits[j].BettorName })

	return out, nil
}

func record(m ledger.Match, w ledger.Wager, winner ledger.Side, paid decimal.Decimal) ledger.SettlementRecord {
	return ledger.SettlementRecord{
		MatchID:     m.ID,
		Side1Name:   m.Side1Name,
		Side2Name:   m.Side2Name,
		BettorName:  w.BettorName,
		Staked:      w.Amount,
		PaidOut:     paid,
		ChosenSide:  w.Side,
		WinningSide: winner,
	}
}

// distribute divide pool entre as apostas proporcionalmente ao valor apostado.
// Cada parte é truncada em centavos e os centavos que sobram vão para as maiores
// frações descartadas (maior resto), de modo que a soma seja exatamente pool.
func distribute(wagers []ledger.Wager, stakeTotal, pool decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(wagers))
	if len(wagers) == 0 || stakeTotal.IsZero() {
		return out
	}

	type share struct {
		idx       int
		remainder decimal.Decimal
	}
	shares := make([]share, len(wagers))
	allocated := decimal.Zero
	for i, w := range wagers {
		exact := w.Amount.Mul(pool).Div(stakeTotal)
		floor := exact.Truncate(ledger.CurrencyPlaces)
		out[i] = floor
		allocated = allocated.Add(floor)
		shares[i] = share{idx: i, remainder: exact.Sub(floor)}
	}

	sort.SliceStable(shares, func(a, b int) bool {
		ra, rb := shares[a].remainder, shares[b].remainder
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		wa, wb := wagers[shares[a].idx], wagers[shares[b].idx]
		if !wa.Amount.Equal(wb.Amount) {
			return wa.Amount.GreaterThan(wb.Amount)
		}
		return wa.ID < wb.ID
	})

	n := int64(len(shares))
	left := pool.Sub(allocated).Div(cent).IntPart()
	for i := int64(0); i < left; i++ {
		s := shares[i%n]
		out[s.idx] = out[s.idx].Add(cent)
	}
	// arredondamento da divisão pode deixar a soma um centavo acima
	for i := int64(0); i < -left; i++ {
		s := shares[n-1-i%n]
		out[s.idx] = out[s.idx].Sub(cent)
	}
	return out
}
