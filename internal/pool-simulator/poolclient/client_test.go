package poolclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	httpapi "github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/http"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/repo"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/service"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/settlement"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newPoolServer(t *testing.T) *httptest.Server {
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
	return srv
}

func TestClient_Flow(t *testing.T) {
	c := New(newPoolServer(t).URL)
	ctx := context.Background()

	for _, name := range []string{"ana", "bruno"} {
		if _, err := c.RegisterBettor(ctx, name, d("100")); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	m, err := c.CreateMatch(ctx, "Flamengo", "Palmeiras")
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if _, err := c.PlaceWager(ctx, m.ID, "ana", d("100"), 1); err != nil {
		t.Fatalf("wager ana: %v", err)
	}
	if _, err := c.PlaceWager(ctx, m.ID, "bruno", d("100"), 2); err != nil {
		t.Fatalf("wager bruno: %v", err)
	}

	res, err := c.ResolveMatch(ctx, m.ID, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.WinnerName != "Flamengo" || !res.HouseCommission.Equal(d("25")) {
		t.Errorf("resolution=%+v", res)
	}

	ana, err := c.GetBettor(ctx, "ana")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ana.Balance.Equal(d("175")) {
		t.Errorf("ana balance=%s want 175", ana.Balance)
	}

	b, err := c.AdjustBalance(ctx, "bruno", d("-5"))
	if err != nil || !b.Balance.Equal(d("-5")) {
		t.Errorf("adjust: %v balance=%s", err, b.Balance)
	}
}

func TestClient_Errors(t *testing.T) {
	c := New(newPoolServer(t).URL)
	ctx := context.Background()

	if _, err := c.RegisterBettor(ctx, "ana", d("10")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := c.RegisterBettor(ctx, "ana", d("10")); !IsConflict(err) {
		t.Errorf("duplicate: err=%v", err)
	}

	m, _ := c.CreateMatch(ctx, "A", "B")
	_, err := c.PlaceWager(ctx, m.ID, "ana", d("50"), 1)
	if !IsConflict(err) {
		t.Fatalf("insufficient funds: err=%v", err)
	}

	_, err = c.GetBettor(ctx, "ghost")
	var ae *APIError
	if !errors.As(err, &ae) || ae.Status != http.StatusNotFound || ae.Message == "" {
		t.Errorf("not found: err=%v", err)
	}
	if IsConflict(err) {
		t.Error("404 is not a conflict")
	}
}
