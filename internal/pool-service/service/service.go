package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/settlement"
	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

// Publisher recebe os eventos do pool depois do commit
type Publisher interface {
	PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error
	PublishMatchResolved(ctx context.Context, e events.MatchResolved) error
	PublishHistoryPurged(ctx context.Context, e events.HistoryPurged) error
}

// Service executa as operações do pool. Cada operação roda em exatamente uma
// transação do store.
type Service struct {
	log    *zap.Logger
	store  ledger.Store
	engine *settlement.Engine
	publ   Publisher
	now    func() time.Time

	// callbacks de métricas (opcionais)
	OnWagerPlaced   func()
	OnMatchResolved func()
	OnPublishError  func()
}

// New cria o serviço; publ pode ser nil (eventos desligados)
func New(log *zap.Logger, store ledger.Store, engine *settlement.Engine, publ Publisher) *Service {
	return &Service{
		log:    log,
		store:  store,
		engine: engine,
		publ:   publ,
		now:    time.Now,
	}
}

// Resolution devolve a partida resolvida e o cálculo aplicado
type Resolution struct {
	Match   ledger.Match
	Outcome *settlement.Outcome
}

// PurgeResult conta o que foi apagado pelo expurgo do histórico
type PurgeResult struct {
	MatchesDeleted int64 `json:"matches_deleted"`
	RecordsDeleted int64 `json:"records_deleted"`
}

func (s *Service) RegisterBettor(ctx context.Context, name string, initial decimal.Decimal) (ledger.Bettor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Bettor{}, ledger.ErrInvalidName
	}
	if initial.IsNegative() || !initial.Equal(ledger.RoundCurrency(initial)) || !ledger.InRange(initial) {
		return ledger.Bettor{}, fmt.Errorf("initial balance %s: %w", initial, ledger.ErrInvalidAmount)
	}

	var out ledger.Bettor
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.InsertBettor(ctx, name, initial)
		out = b
		return err
	})
	if err != nil {
		return ledger.Bettor{}, err
	}
	s.log.Info("bettor registered", zap.String("bettor", name), zap.String("balance", initial.StringFixed(2)))
	return out, nil
}

// AdjustBalance soma delta ao saldo. O saldo pode ficar negativo, mas nunca além de MaxAmount em módulo.
func (s *Service) AdjustBalance(ctx context.Context, name string, delta decimal.Decimal) (ledger.Bettor, error) {
	name = strings.TrimSpace(name)
	if !delta.Equal(ledger.RoundCurrency(delta)) || !ledger.InRange(delta) {
		return ledger.Bettor{}, fmt.Errorf("delta %s: %w", delta, ledger.ErrInvalidAmount)
	}
	var out ledger.Bettor
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.LockBettor(ctx, name)
		if err != nil {
			return err
		}
		if next := b.Balance.Add(delta); !ledger.InRange(next) {
			return fmt.Errorf("balance %s for %q out of range: %w", next, name, ledger.ErrInvalidAmount)
		}
		b, err = tx.AddBalance(ctx, name, delta)
		out = b
		return err
	})
	if err != nil {
		return ledger.Bettor{}, err
	}
	s.log.Info("balance adjusted",
		zap.String("bettor", name),
		zap.String("delta", delta.StringFixed(2)),
		zap.String("balance", out.Balance.StringFixed(2)))
	return out, nil
}

func (s *Service) CreateMatch(ctx context.Context, side1, side2 string) (ledger.Match, error) {
	side1, side2 = strings.TrimSpace(side1), strings.TrimSpace(side2)
	if side1 == "" || side2 == "" {
		return ledger.Match{}, ledger.ErrInvalidName
	}
	var out ledger.Match
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		m, err := tx.InsertMatch(ctx, side1, side2)
		out = m
		return err
	})
	if err != nil {
		return ledger.Match{}, err
	}
	s.log.Info("match created", zap.Int64("match_id", out.ID), zap.String("side1", side1), zap.String("side2", side2))
	return out, nil
}

// PlaceWager debita o apostador, cria a aposta e incrementa o total do lado,
// tudo na mesma transação. Ordem de lock: partida, depois apostador.
func (s *Service) PlaceWager(ctx context.Context, matchID int64, bettorName string, amount decimal.Decimal, side ledger.Side) (ledger.Wager, error) {
	bettorName = strings.TrimSpace(bettorName)
	var (
		wager ledger.Wager
		match ledger.Match
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		m, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !m.IsOpen() {
			return fmt.Errorf("match %d: %w", matchID, ledger.ErrAlreadyResolved)
		}
		if !side.Valid() {
			return fmt.Errorf("side %d: %w", side, ledger.ErrInvalidSide)
		}
		b, err := tx.LockBettor(ctx, bettorName)
		if err != nil {
			return err
		}
		if !ledger.ValidAmount(amount) {
			return fmt.Errorf("amount %s: %w", amount, ledger.ErrInvalidAmount)
		}
		if b.Balance.LessThan(amount) {
			return &ledger.InsufficientFundsError{Name: b.Name, Balance: b.Balance, Requested: amount}
		}
		if total := m.Total(side).Add(amount); !ledger.InRange(total) {
			return fmt.Errorf("side %d total %s out of range: %w", side, total, ledger.ErrInvalidAmount)
		}

		if _, err := tx.AddBalance(ctx, bettorName, amount.Neg()); err != nil {
			return err
		}
		if wager, err = tx.InsertWager(ctx, matchID, bettorName, amount, side); err != nil {
			return err
		}
		match, err = tx.AddToSideTotal(ctx, matchID, side, amount)
		return err
	})
	if err != nil {
		return ledger.Wager{}, err
	}

	s.log.Info("wager placed",
		zap.Int64("match_id", matchID),
		zap.Int64("wager_id", wager.ID),
		zap.String("bettor", bettorName),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int("side", int(side)))
	if s.OnWagerPlaced != nil {
		s.OnWagerPlaced()
	}

	s.publish(ctx, "wager_placed", func(p Publisher) error {
		return p.PublishWagerPlaced(ctx, events.WagerPlaced{
			EventID:    uuid.NewString(),
			WagerID:    wager.ID,
			MatchID:    matchID,
			Bettor:     bettorName,
			Amount:     amount,
			Side:       int(side),
			Side1Total: match.Side1Total,
			Side2Total: match.Side2Total,
		})
	})
	return wager, nil
}

// ResolveMatch liquida a partida: comissão da casa, créditos dos vencedores,
// registros de liquidação, partida RESOLVED e apostas abertas removidas.
func (s *Service) ResolveMatch(ctx context.Context, matchID int64, winner ledger.Side) (Resolution, error) {
	if !winner.Valid() {
		return Resolution{}, fmt.Errorf("winning side %d: %w", winner, ledger.ErrInvalidSide)
	}

	var res Resolution
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		m, err := tx.LockMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !m.IsOpen() {
			return fmt.Errorf("match %d: %w", matchID, ledger.ErrAlreadyResolved)
		}
		wagers, err := tx.WagersForMatch(ctx, matchID)
		if err != nil {
			return err
		}
		out, err := s.engine.Settle(m, wagers, winner)
		if err != nil {
			return err
		}
		if out.Unbalanced() {
			s.log.Info("resolving match with unequal side totals",
				zap.Int64("match_id", matchID),
				zap.String("side1_total", m.Side1Total.StringFixed(2)),
				zap.String("side2_total", m.Side2Total.StringFixed(2)))
		}

		// créditos já vêm ordenados por nome: ordem de lock estável entre transações
		// um crédito acima de MaxAmount não cabe na coluna; o saldo precisa ser ajustado antes
		for _, c := range out.Credits {
			b, err := tx.LockBettor(ctx, c.BettorName)
			if err != nil {
				return err
			}
			if next := b.Balance.Add(c.Amount); !ledger.InRange(next) {
				return fmt.Errorf("credit %s to %q out of range: %w", c.Amount.StringFixed(2), c.BettorName, ledger.ErrInvalidAmount)
			}
			if _, err := tx.AddBalance(ctx, c.BettorName, c.Amount); err != nil {
				return err
			}
		}
		if err := tx.InsertSettlementRecords(ctx, out.Records); err != nil {
			return err
		}
		resolved, err := tx.MarkResolved(ctx, matchID, winner, out.HouseCommission)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteWagers(ctx, matchID); err != nil {
			return err
		}
		res = Resolution{Match: resolved, Outcome: out}
		return nil
	})
	if err != nil {
		return Resolution{}, err
	}

	s.log.Info("match resolved",
		zap.Int64("match_id", matchID),
		zap.Int("winning_side", int(winner)),
		zap.String("house_commission", res.Outcome.HouseCommission.StringFixed(2)),
		zap.String("paid_out", res.Outcome.TotalPaidOut().StringFixed(2)),
		zap.Int("records", len(res.Outcome.Records)))
	if s.OnMatchResolved != nil {
		s.OnMatchResolved()
	}

	s.publish(ctx, "match_resolved", func(p Publisher) error {
		return p.PublishMatchResolved(ctx, resolvedEvent(res, s.now()))
	})
	return res, nil
}

func resolvedEvent(res Resolution, ts time.Time) events.MatchResolved {
	m := res.Match
	e := events.MatchResolved{
		EventID:         uuid.NewString(),
		MatchID:         m.ID,
		Side1Name:       m.Side1Name,
		Side2Name:       m.Side2Name,
		WinningSide:     int(res.Outcome.WinningSide),
		Side1Total:      m.Side1Total,
		Side2Total:      m.Side2Total,
		HouseCommission: res.Outcome.HouseCommission,
		Ts:              ts.UTC(),
	}
	for _, r := range res.Outcome.Records {
		e.Payouts = append(e.Payouts, events.Payout{
			Bettor:  r.BettorName,
			Staked:  r.Staked,
			PaidOut: r.PaidOut,
			Side:    int(r.ChosenSide),
		})
	}
	return e
}

// PurgeResolvedHistory apaga partidas resolvidas e seus registros de liquidação.
// Partidas abertas, apostas e apostadores não são tocados.
func (s *Service) PurgeResolvedHistory(ctx context.Context) (PurgeResult, error) {
	var out PurgeResult
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		m, r, err := tx.PurgeResolved(ctx)
		out = PurgeResult{MatchesDeleted: m, RecordsDeleted: r}
		return err
	})
	if err != nil {
		return PurgeResult{}, err
	}
	s.log.Info("resolved history purged",
		zap.Int64("matches", out.MatchesDeleted),
		zap.Int64("records", out.RecordsDeleted))

	s.publish(ctx, "history_purged", func(p Publisher) error {
		return p.PublishHistoryPurged(ctx, events.HistoryPurged{
			EventID:        uuid.NewString(),
			MatchesDeleted: out.MatchesDeleted,
			RecordsDeleted: out.RecordsDeleted,
			Ts:             s.now().UTC(),
		})
	})
	return out, nil
}

// publish não falha a operação: o ledger já foi gravado
func (s *Service) publish(ctx context.Context, kind string, fn func(Publisher) error) {
	if s.publ == nil {
		return
	}
	if err := fn(s.publ); err != nil {
		s.log.Warn("publish event failed", zap.String("event", kind), zap.Error(err))
		if s.OnPublishError != nil {
			s.OnPublishError()
		}
	}
}

// ---- leitura ----

func (s *Service) ListBettors(ctx context.Context) ([]ledger.Bettor, error) {
	return s.store.ListBettors(ctx)
}

func (s *Service) GetBettor(ctx context.Context, name string) (ledger.Bettor, error) {
	return s.store.GetBettor(ctx, strings.TrimSpace(name))
}

func (s *Service) ListMatches(ctx context.Context, state ledger.MatchState) ([]ledger.Match, error) {
	return s.store.ListMatches(ctx, state)
}

func (s *Service) GetMatch(ctx context.Context, id int64) (ledger.Match, error) {
	return s.store.GetMatch(ctx, id)
}

func (s *Service) ListWagers(ctx context.Context, matchID int64) ([]ledger.Wager, error) {
	if _, err := s.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return s.store.ListWagers(ctx, matchID)
}
