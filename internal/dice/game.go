package dice

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInvalidBet cobre valor não positivo ou maior que o saldo
var ErrInvalidBet = errors.New("invalid bet or insufficient balance")

const (
	ResultWin  = "WIN"
	ResultLoss = "LOSS"
)

// Roll é o resultado de uma aposta
type Roll struct {
	Dice1      int             `json:"dice1"`
	Dice2      int             `json:"dice2"`
	Sum        int             `json:"sum"`
	Result     string          `json:"result"`
	Profit     decimal.Decimal `json:"profit"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// Game guarda o saldo de um único jogador em memória.
// Soma 7 ou 11 ganha e paga 1:1; qualquer outra soma perde o valor apostado.
type Game struct {
	mu       sync.Mutex
	balance  decimal.Decimal
	starting decimal.Decimal

	// Die devolve um valor de 1 a 6; substituível nos testes
	Die func() int
}

func NewGame(starting decimal.Decimal) *Game {
	return &Game{
		balance:  starting,
		starting: starting,
		Die:      func() int { return rand.Intn(6) + 1 },
	}
}

func (g *Game) Balance() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance
}

// Reset volta o saldo ao valor inicial
func (g *Game) Reset() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = g.starting
	return g.balance
}

func (g *Game) Starting() decimal.Decimal { return g.starting }

// Bet rola os dois dados e aplica o resultado ao saldo
func (g *Game) Bet(amount decimal.Decimal) (Roll, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !amount.IsPositive() || amount.GreaterThan(g.balance) {
		return Roll{}, ErrInvalidBet
	}

	d1, d2 := g.Die(), g.Die()
	r := Roll{Dice1: d1, Dice2: d2, Sum: d1 + d2}
	if r.Sum == 7 || r.Sum == 11 {
		r.Result = ResultWin
		r.Profit = amount
	} else {
		r.Result = ResultLoss
		r.Profit = amount.Neg()
	}
	g.balance = g.balance.Add(r.Profit)
	r.NewBalance = g.balance
	return r, nil
}
