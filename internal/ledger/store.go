package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store é o armazenamento do ledger. Toda escrita passa por WithTx: se fn devolver
// erro nada é gravado.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader agrupa as consultas somente leitura usadas por relatórios e pela API
type Reader interface {
	ListBettors(ctx context.Context) ([]Bettor, error)
	GetBettor(ctx context.Context, name string) (Bettor, error)
	ListMatches(ctx context.Context, state MatchState) ([]Match, error)
	GetMatch(ctx context.Context, id int64) (Match, error)
	ListWagers(ctx context.Context, matchID int64) ([]Wager, error)
	ListSettlementRecords(ctx context.Context) ([]SettlementRecord, error)
	BettorTotals(ctx context.Context) ([]BettorTotals, error)
	HouseProfit(ctx context.Context) (decimal.Decimal, error)
}

// Tx são as operações disponíveis dentro de uma transação.
// Os métodos Lock* bloqueiam a linha até o fim da transação.
type Tx interface {
	InsertBettor(ctx context.Context, name string, balance decimal.Decimal) (Bettor, error)
	LockBettor(ctx context.Context, name string) (Bettor, error)
	AddBalance(ctx context.Context, name string, delta decimal.Decimal) (Bettor, error)

	InsertMatch(ctx context.Context, side1, side2 string) (Match, error)
	LockMatch(ctx context.Context, id int64) (Match, error)
	AddToSideTotal(ctx context.Context, matchID int64, side Side, amount decimal.Decimal) (Match, error)
	// MarkResolved só altera partidas OPEN; caso contrário devolve ErrAlreadyResolved
	MarkResolved(ctx context.Context, matchID int64, winner Side, commission decimal.Decimal) (Match, error)

	InsertWager(ctx context.Context, matchID int64, bettor string, amount decimal.Decimal, side Side) (Wager, error)
	WagersForMatch(ctx context.Context, matchID int64) ([]Wager, error)
	DeleteWagers(ctx context.Context, matchID int64) (int64, error)

	InsertSettlementRecords(ctx context.Context, recs []SettlementRecord) error
	// PurgeResolved apaga partidas RESOLVED e seus registros de liquidação
	PurgeResolved(ctx context.Context) (matches int64, records int64, err error)
}

// BettorTotals agrega a atividade liquidada de um apostador
type BettorTotals struct {
	Name         string
	Balance      decimal.Decimal
	TotalStaked  decimal.Decimal
	TotalPaidOut decimal.Decimal
}
