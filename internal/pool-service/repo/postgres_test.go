package repo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/shared/db"
)

// Roda só com POOL_TEST_POSTGRES_DSN apontando para um banco descartável
func newPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("POOL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POOL_TEST_POSTGRES_DSN not set")
	}
	pg, err := db.ConnectPostgres(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pg.Close() })

	ctx := context.Background()
	if err := db.Migrate(ctx, pg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pg.ExecContext(ctx, `TRUNCATE settlement_records, wagers, matches, bettors RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgres(pg)
}

func TestPostgres_WagerAndResolveFlow(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()

	var matchID int64
	err := p.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.InsertBettor(ctx, "ana", d("100")); err != nil {
			return err
		}
		m, err := tx.InsertMatch(ctx, "Lions", "Tigers")
		if err != nil {
			return err
		}
		matchID = m.ID
		if _, err := tx.AddBalance(ctx, "ana", d("-40")); err != nil {
			return err
		}
		if _, err := tx.InsertWager(ctx, m.ID, "ana", d("40"), ledger.Side2); err != nil {
			return err
		}
		_, err = tx.AddToSideTotal(ctx, m.ID, ledger.Side2, d("40"))
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := p.GetMatch(ctx, matchID)
	if err != nil || !m.Side2Total.Equal(d("40")) {
		t.Fatalf("match=%+v err=%v", m, err)
	}

	err = p.WithTx(ctx, func(tx ledger.Tx) error {
		ws, err := tx.WagersForMatch(ctx, matchID)
		if err != nil || len(ws) != 1 {
			return errors.New("expected one wager")
		}
		if err := tx.InsertSettlementRecords(ctx, []ledger.SettlementRecord{{
			MatchID: matchID, Side1Name: "Lions", Side2Name: "Tigers", BettorName: "ana",
			Staked: d("40"), PaidOut: d("0"), ChosenSide: ledger.Side2, WinningSide: ledger.Side1,
		}}); err != nil {
			return err
		}
		if _, err := tx.MarkResolved(ctx, matchID, ledger.Side1, d("40")); err != nil {
			return err
		}
		_, err = tx.DeleteWagers(ctx, matchID)
		return err
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = p.WithTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.MarkResolved(ctx, matchID, ledger.Side2, d("0"))
		return err
	})
	if !errors.Is(err, ledger.ErrAlreadyResolved) {
		t.Fatalf("second resolve err=%v", err)
	}

	profit, err := p.HouseProfit(ctx)
	if err != nil || !profit.Equal(d("40")) {
		t.Errorf("profit=%s err=%v", profit, err)
	}
	totals, err := p.BettorTotals(ctx)
	if err != nil || len(totals) != 1 || !totals[0].TotalStaked.Equal(d("40")) {
		t.Errorf("totals=%+v err=%v", totals, err)
	}

	var matches, records int64
	err = p.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		matches, records, err = tx.PurgeResolved(ctx)
		return err
	})
	if err != nil || matches != 1 || records != 1 {
		t.Errorf("purge matches=%d records=%d err=%v", matches, records, err)
	}
}

func TestPostgres_DuplicateAndNotFound(t *testing.T) {
	p := newPostgres(t)
	ctx := context.Background()
	insert := func() error {
		return p.WithTx(ctx, func(tx ledger.Tx) error {
			_, err := tx.InsertBettor(ctx, "ana", d("1"))
			return err
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := insert(); !errors.Is(err, ledger.ErrDuplicateKey) {
		t.Errorf("err=%v want ErrDuplicateKey", err)
	}
	if _, err := p.GetBettor(ctx, "ghost"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err=%v want ErrNotFound", err)
	}
	if _, err := p.GetMatch(ctx, 12345); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err=%v want ErrNotFound", err)
	}
}
