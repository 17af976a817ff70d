package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
)

// Postgres implementa o ledger do pool em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório do ledger
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// queryer é satisfeito tanto por *sql.DB quanto por *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithTx executa fn numa transação; commit só se fn não devolver erro
func (p *Postgres) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const bettorCols = `name, balance, created_at, updated_at`

const matchCols = `id, side1_name, side2_name, side1_total, side2_total, state, winning_side, house_commission, created_at, resolved_at`

const wagerCols = `id, match_id, bettor_name, amount, side, created_at`

const recordCols = `id, match_id, side1_name, side2_name, bettor_name, staked, paid_out, chosen_side, winning_side, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBettor(s scanner) (ledger.Bettor, error) {
	var b ledger.Bettor
	err := s.Scan(&b.Name, &b.Balance, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanMatch(s scanner) (ledger.Match, error) {
	var (
		m          ledger.Match
		state      string
		winner     sql.NullInt16
		resolvedAt sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.Side1Name, &m.Side2Name, &m.Side1Total, &m.Side2Total,
		&state, &winner, &m.HouseCommission, &m.CreatedAt, &resolvedAt); err != nil {
		return m, err
	}
	m.State = ledger.MatchState(state)
	if winner.Valid {
		w := ledger.Side(winner.Int16)
		m.WinningSide = &w
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		m.ResolvedAt = &t
	}
	return m, nil
}

func scanWager(s scanner) (ledger.Wager, error) {
	var w ledger.Wager
	err := s.Scan(&w.ID, &w.MatchID, &w.BettorName, &w.Amount, &w.Side, &w.CreatedAt)
	return w, err
}

func scanRecord(s scanner) (ledger.SettlementRecord, error) {
	var r ledger.SettlementRecord
	err := s.Scan(&r.ID, &r.MatchID, &r.Side1Name, &r.Side2Name, &r.BettorName,
		&r.Staked, &r.PaidOut, &r.ChosenSide, &r.WinningSide, &r.CreatedAt)
	return r, err
}

// notFound converte sql.ErrNoRows em ledger.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	return err
}

// isUniqueViolation identifica SQLSTATE 23505
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ---- leitura ----

func (p *Postgres) ListBettors(ctx context.Context) ([]ledger.Bettor, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+bettorCols+` FROM bettors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Bettor
	for rows.Next() {
		b, err := scanBettor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) GetBettor(ctx context.Context, name string) (ledger.Bettor, error) {
	b, err := scanBettor(p.db.QueryRowContext(ctx, `SELECT `+bettorCols+` FROM bettors WHERE name=$1`, name))
	return b, notFound(err, "bettor "+name)
}

// ListMatches filtra por estado; estado vazio lista todas
func (p *Postgres) ListMatches(ctx context.Context, state ledger.MatchState) ([]ledger.Match, error) {
	q := `SELECT ` + matchCols + ` FROM matches`
	var args []any
	if state != "" {
		q += ` WHERE state=$1`
		args = append(args, string(state))
	}
	q += ` ORDER BY id`
	return listMatches(ctx, p.db, q, args...)
}

func listMatches(ctx context.Context, q queryer, query string, args ...any) ([]ledger.Match, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) GetMatch(ctx context.Context, id int64) (ledger.Match, error) {
	m, err := scanMatch(p.db.QueryRowContext(ctx, `SELECT `+matchCols+` FROM matches WHERE id=$1`, id))
	return m, notFound(err, fmt.Sprintf("match %d", id))
}

func (p *Postgres) ListWagers(ctx context.Context, matchID int64) ([]ledger.Wager, error) {
	return listWagers(ctx, p.db, matchID, false)
}

func listWagers(ctx context.Context, q queryer, matchID int64, lock bool) ([]ledger.Wager, error) {
	query := `SELECT ` + wagerCols + ` FROM wagers WHERE match_id=$1 ORDER BY id`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListSettlementRecords devolve o histórico completo, partidas mais recentes primeiro
func (p *Postgres) ListSettlementRecords(ctx context.Context) ([]ledger.SettlementRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+recordCols+` FROM settlement_records ORDER BY match_id DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.SettlementRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BettorTotals soma apostado e recebido no histórico de cada apostador
func (p *Postgres) BettorTotals(ctx context.Context) ([]ledger.BettorTotals, error) {
	const q = `
		SELECT b.name, b.balance,
		       COALESCE(SUM(r.staked), 0)   AS total_staked,
		       COALESCE(SUM(r.paid_out), 0) AS total_paid_out
		FROM bettors b
		LEFT JOIN settlement_records r ON r.bettor_name = b.name
		GROUP BY b.name, b.balance
		ORDER BY b.name
	`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.BettorTotals
	for rows.Next() {
		var t ledger.BettorTotals
		if err := rows.Scan(&t.Name, &t.Balance, &t.TotalStaked, &t.TotalPaidOut); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HouseProfit soma as comissões das partidas resolvidas
func (p *Postgres) HouseProfit(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(house_commission), 0) FROM matches WHERE state=$1`,
		string(ledger.MatchResolved)).Scan(&total)
	return total, err
}

// ---- transação ----

type pgTx struct{ tx *sql.Tx }

func (t *pgTx) InsertBettor(ctx context.Context, name string, balance decimal.Decimal) (ledger.Bettor, error) {
	b, err := scanBettor(t.tx.QueryRowContext(ctx,
		`INSERT INTO bettors(name, balance) VALUES($1,$2) RETURNING `+bettorCols, name, balance))
	if isUniqueViolation(err) {
		return b, fmt.Errorf("bettor %s: %w", name, ledger.ErrDuplicateKey)
	}
	return b, err
}

func (t *pgTx) LockBettor(ctx context.Context, name string) (ledger.Bettor, error) {
	b, err := scanBettor(t.tx.QueryRowContext(ctx,
		`SELECT `+bettorCols+` FROM bettors WHERE name=$1 FOR UPDATE`, name))
	return b, notFound(err, "bettor "+name)
}

func (t *pgTx) AddBalance(ctx context.Context, name string, delta decimal.Decimal) (ledger.Bettor, error) {
	b, err := scanBettor(t.tx.QueryRowContext(ctx,
		`UPDATE bettors SET balance = balance + $1, updated_at = $2 WHERE name=$3 RETURNING `+bettorCols,
		delta, time.Now().UTC(), name))
	return b, notFound(err, "bettor "+name)
}

func (t *pgTx) InsertMatch(ctx context.Context, side1, side2 string) (ledger.Match, error) {
	return scanMatch(t.tx.QueryRowContext(ctx,
		`INSERT INTO matches(side1_name, side2_name) VALUES($1,$2) RETURNING `+matchCols, side1, side2))
}

func (t *pgTx) LockMatch(ctx context.Context, id int64) (ledger.Match, error) {
	m, err := scanMatch(t.tx.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE id=$1 FOR UPDATE`, id))
	return m, notFound(err, fmt.Sprintf("match %d", id))
}

func (t *pgTx) AddToSideTotal(ctx context.Context, matchID int64, side ledger.Side, amount decimal.Decimal) (ledger.Match, error) {
	// coluna escolhida por whitelist, nunca interpolando entrada do usuário
	col := "side1_total"
	switch side {
	case ledger.Side1:
	case ledger.Side2:
		col = "side2_total"
	default:
		return ledger.Match{}, fmt.Errorf("side %d: %w", side, ledger.ErrInvalidSide)
	}
	m, err := scanMatch(t.tx.QueryRowContext(ctx,
		`UPDATE matches SET `+col+` = `+col+` + $1 WHERE id=$2 RETURNING `+matchCols, amount, matchID))
	return m, notFound(err, fmt.Sprintf("match %d", matchID))
}

func (t *pgTx) MarkResolved(ctx context.Context, matchID int64, winner ledger.Side, commission decimal.Decimal) (ledger.Match, error) {
	m, err := scanMatch(t.tx.QueryRowContext(ctx, `
		UPDATE matches
		SET state=$1, winning_side=$2, house_commission=$3, resolved_at=$4
		WHERE id=$5 AND state=$6
		RETURNING `+matchCols,
		string(ledger.MatchResolved), int16(winner), commission, time.Now().UTC(), matchID, string(ledger.MatchOpen)))
	if errors.Is(err, sql.ErrNoRows) {
		// partida inexistente ou já resolvida por outra transação
		if _, gerr := scanMatch(t.tx.QueryRowContext(ctx, `SELECT `+matchCols+` FROM matches WHERE id=$1`, matchID)); gerr != nil {
			return m, notFound(gerr, fmt.Sprintf("match %d", matchID))
		}
		return m, fmt.Errorf("match %d: %w", matchID, ledger.ErrAlreadyResolved)
	}
	return m, err
}

func (t *pgTx) InsertWager(ctx context.Context, matchID int64, bettor string, amount decimal.Decimal, side ledger.Side) (ledger.Wager, error) {
	return scanWager(t.tx.QueryRowContext(ctx,
		`INSERT INTO wagers(match_id, bettor_name, amount, side) VALUES($1,$2,$3,$4) RETURNING `+wagerCols,
		matchID, bettor, amount, int16(side)))
}

func (t *pgTx) WagersForMatch(ctx context.Context, matchID int64) ([]ledger.Wager, error) {
	return listWagers(ctx, t.tx, matchID, true)
}

func (t *pgTx) DeleteWagers(ctx context.Context, matchID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM wagers WHERE match_id=$1`, matchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertSettlementRecords grava os registros em lote com COPY (pq.CopyIn)
func (t *pgTx) InsertSettlementRecords(ctx context.Context, recs []ledger.SettlementRecord) error {
	if len(recs) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, pq.CopyIn("settlement_records",
		"match_id", "side1_name", "side2_name", "bettor_name", "staked", "paid_out", "chosen_side", "winning_side"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.MatchID, r.Side1Name, r.Side2Name, r.BettorName,
			r.Staked, r.PaidOut, int16(r.ChosenSide), int16(r.WinningSide)); err != nil {
			return fmt.Errorf("copy settlement record: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy: %w", err)
	}
	return nil
}

func (t *pgTx) PurgeResolved(ctx context.Context) (int64, int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM settlement_records
		WHERE match_id IN (SELECT id FROM matches WHERE state=$1)`, string(ledger.MatchResolved))
	if err != nil {
		return 0, 0, err
	}
	records, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}

	res, err = t.tx.ExecContext(ctx, `DELETE FROM matches WHERE state=$1`, string(ledger.MatchResolved))
	if err != nil {
		return 0, 0, err
	}
	matches, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	return matches, records, nil
}
