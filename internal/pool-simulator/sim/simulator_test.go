package sim

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	httpapi "github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/http"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/repo"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/service"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-simulator/poolclient"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/settlement"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newSimulator(t *testing.T, bettors ...string) (*Simulator, *repo.Memory) {
	t.Helper()
	engine, err := settlement.NewEngine(d("0.25"))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	store := repo.NewMemory()
	svc := service.New(zap.NewNop(), store, engine, nil)
	view := report.NewView(zap.NewNop(), report.NewBuilder(store), nil)
	srv := httptest.NewServer(httpapi.NewServer(zap.NewNop(), svc, view).Router())
	t.Cleanup(srv.Close)

	s := New(zap.NewNop(), poolclient.New(srv.URL), bettors)
	s.Rand = rand.New(rand.NewSource(1))
	return s, store
}

// money soma saldos e comissões: só muda com depósitos
func money(t *testing.T, store *repo.Memory) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	bs, err := store.ListBettors(ctx)
	if err != nil {
		t.Fatalf("bettors: %v", err)
	}
	sum := decimal.Zero
	for _, b := range bs {
		sum = sum.Add(b.Balance)
	}
	profit, err := store.HouseProfit(ctx)
	if err != nil {
		t.Fatalf("profit: %v", err)
	}
	return sum.Add(profit)
}

func TestSimulator_RoundsConserveMoney(t *testing.T) {
	s, store := newSimulator(t, "ana", "bruno", "carla", "diego")
	s.StartingBalance = d("1000")
	var wagers, resolved int
	s.OnWager = func() { wagers++ }
	s.OnResolve = func() { resolved++ }
	ctx := context.Background()

	if err := s.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// apostadores já existentes não são erro
	if err := s.Seed(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	for i := 0; i < len(Fixtures)+1; i++ {
		res, err := s.Round(ctx)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		if want := Fixtures[i%len(Fixtures)]; res.Match.Side1Name != want[0] || res.Match.Side2Name != want[1] {
			t.Errorf("round %d fixture=%s x %s", i, res.Match.Side1Name, res.Match.Side2Name)
		}
		if res.Match.State != ledger.MatchResolved {
			t.Errorf("round %d state=%s", i, res.Match.State)
		}
	}

	if wagers != 5*s.WagersPerRound || resolved != 5 {
		t.Errorf("wagers=%d resolved=%d", wagers, resolved)
	}
	if got := money(t, store); !got.Equal(d("4000")) {
		t.Errorf("balances + commission=%s want 4000", got)
	}
}

func TestSimulator_TopsUpOnInsufficientFunds(t *testing.T) {
	s, store := newSimulator(t, "ana")
	s.StartingBalance = d("1")
	s.MaxStake = d("50")
	var rejects int
	s.OnReject = func() { rejects++ }
	ctx := context.Background()

	if err := s.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Round(ctx); err != nil {
		t.Fatalf("round: %v", err)
	}
	if rejects == 0 {
		t.Fatal("expected rejected wagers")
	}
	want := d("1").Add(d("1").Mul(decimal.NewFromInt(int64(rejects))))
	if got := money(t, store); !got.Equal(want) {
		t.Errorf("money=%s want %s", got, want)
	}
}

func TestSimulator_StakeRange(t *testing.T) {
	s := New(zap.NewNop(), nil, nil)
	s.Rand = rand.New(rand.NewSource(7))
	s.MaxStake = d("2.5")
	for i := 0; i < 200; i++ {
		v := s.stake()
		if v.LessThan(minStake) || v.GreaterThan(s.MaxStake) || !ledger.ValidAmount(v) {
			t.Fatalf("stake=%s out of range", v)
		}
	}
	s.MaxStake = d("0.5")
	if v := s.stake(); !v.Equal(minStake) {
		t.Errorf("stake=%s want %s", v, minStake)
	}
}

func TestSimulator_NoBettors(t *testing.T) {
	s := New(zap.NewNop(), nil, nil)
	if _, err := s.Round(context.Background()); err == nil {
		t.Fatal("expected error without bettors")
	}
}
