package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/dto"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-simulator/poolclient"
)

// Pool é o subconjunto da API do pool-service usado pelo simulador
type Pool interface {
	RegisterBettor(ctx context.Context, name string, balance decimal.Decimal) (ledger.Bettor, error)
	AdjustBalance(ctx context.Context, name string, delta decimal.Decimal) (ledger.Bettor, error)
	CreateMatch(ctx context.Context, side1, side2 string) (ledger.Match, error)
	PlaceWager(ctx context.Context, matchID int64, bettor string, amount decimal.Decimal, side int) (ledger.Wager, error)
	ResolveMatch(ctx context.Context, matchID int64, winningSide int) (dto.ResolveMatchResponse, error)
}

// Catálogo fixo de confrontos usados nas rodadas
var Fixtures = [][2]string{
	{"Flamengo", "Palmeiras"},
	{"Grêmio", "Internacional"},
	{"Corinthians", "Santos"},
	{"São Paulo", "Vasco"},
}

var minStake = decimal.NewFromInt(1)

// Simulator gera tráfego no pool: cada rodada cria uma partida, espalha apostas
// aleatórias entre os apostadores e resolve com um lado sorteado.
// Não é seguro para uso concorrente.
type Simulator struct {
	Log     *zap.Logger
	Pool    Pool
	Bettors []string

	StartingBalance decimal.Decimal
	MaxStake        decimal.Decimal
	WagersPerRound  int
	Rand            *rand.Rand

	OnWager   func()
	OnReject  func()
	OnResolve func()

	round int
}

func New(log *zap.Logger, pool Pool, bettors []string) *Simulator {
	return &Simulator{
		Log:             log,
		Pool:            pool,
		Bettors:         bettors,
		StartingBalance: decimal.NewFromInt(100),
		MaxStake:        decimal.NewFromInt(20),
		WagersPerRound:  6,
		Rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed registra os apostadores; quem já existe é mantido como está
func (s *Simulator) Seed(ctx context.Context) error {
	for _, name := range s.Bettors {
		_, err := s.Pool.RegisterBettor(ctx, name, s.StartingBalance)
		if err != nil && !poolclient.IsConflict(err) {
			return fmt.Errorf("register %q: %w", name, err)
		}
	}
	return nil
}

// stake sorteia um valor em centavos entre minStake e MaxStake
func (s *Simulator) stake() decimal.Decimal {
	lo := minStake.Shift(ledger.CurrencyPlaces).IntPart()
	hi := s.MaxStake.Shift(ledger.CurrencyPlaces).IntPart()
	if hi <= lo {
		return minStake
	}
	return decimal.New(lo+s.Rand.Int63n(hi-lo+1), -ledger.CurrencyPlaces)
}

// Round executa uma rodada completa e devolve a liquidação
func (s *Simulator) Round(ctx context.Context) (dto.ResolveMatchResponse, error) {
	if len(s.Bettors) == 0 {
		return dto.ResolveMatchResponse{}, errors.New("no bettors to simulate")
	}
	fx := Fixtures[s.round%len(Fixtures)]
	s.round++

	m, err := s.Pool.CreateMatch(ctx, fx[0], fx[1])
	if err != nil {
		return dto.ResolveMatchResponse{}, fmt.Errorf("create match: %w", err)
	}

	for i := 0; i < s.WagersPerRound; i++ {
		name := s.Bettors[s.Rand.Intn(len(s.Bettors))]
		amount := s.stake()
		side := 1 + s.Rand.Intn(2)
		_, err := s.Pool.PlaceWager(ctx, m.ID, name, amount, side)
		switch {
		case err == nil:
			if s.OnWager != nil {
				s.OnWager()
			}
		case poolclient.IsConflict(err):
			// saldo insuficiente: repõe o saldo inicial e segue
			s.Log.Info("wager rejected, topping up",
				zap.String("bettor", name),
				zap.String("amount", amount.StringFixed(2)),
				zap.Error(err))
			if s.OnReject != nil {
				s.OnReject()
			}
			if _, err := s.Pool.AdjustBalance(ctx, name, s.StartingBalance); err != nil {
				return dto.ResolveMatchResponse{}, fmt.Errorf("top up %q: %w", name, err)
			}
		default:
			return dto.ResolveMatchResponse{}, fmt.Errorf("place wager: %w", err)
		}
	}

	res, err := s.Pool.ResolveMatch(ctx, m.ID, 1+s.Rand.Intn(2))
	if err != nil {
		return dto.ResolveMatchResponse{}, fmt.Errorf("resolve match %d: %w", m.ID, err)
	}
	if s.OnResolve != nil {
		s.OnResolve()
	}
	s.Log.Info("round resolved",
		zap.Int64("match_id", m.ID),
		zap.String("winner", res.WinnerName),
		zap.String("house_commission", res.HouseCommission.StringFixed(2)),
		zap.Int("payouts", len(res.Payouts)))
	return res, nil
}

// Run registra os apostadores e roda uma rodada a cada intervalo até ctx terminar
func (s *Simulator) Run(ctx context.Context, interval time.Duration) error {
	if err := s.Seed(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Round(ctx); err != nil && ctx.Err() == nil {
				s.Log.Warn("round failed", zap.Error(err))
			}
		}
	}
}
