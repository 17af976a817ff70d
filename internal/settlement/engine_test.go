package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openMatch(t1, t2 string) ledger.Match {
	return ledger.Match{
		ID:              7,
		Side1Name:       "Lions",
		Side2Name:       "Tigers",
		Side1Total:      d(t1),
		Side2Total:      d(t2),
		State:           ledger.MatchOpen,
		HouseCommission: decimal.Zero,
	}
}

func wager(id int64, bettor, amount string, side ledger.Side) ledger.Wager {
	return ledger.Wager{ID: id, MatchID: 7, BettorName: bettor, Amount: d(amount), Side: side}
}

func mustEngine(t *testing.T, rate string) *Engine {
	t.Helper()
	e, err := NewEngine(d(rate))
	if err != nil {
		t.Fatalf("NewEngine(%s): %v", rate, err)
	}
	return e
}

func paidTo(t *testing.T, out *Outcome, bettor string) decimal.Decimal {
	t.Helper()
	for _, r := range out.Records {
		if r.BettorName == bettor {
			return r.PaidOut
		}
	}
	t.Fatalf("no record for %s", bettor)
	return decimal.Zero
}

func assertConserved(t *testing.T, m ledger.Match, out *Outcome) {
	t.Helper()
	got := out.TotalPaidOut().Add(out.HouseCommission)
	want := m.Side1Total.Add(m.Side2Total)
	if !got.Equal(want) {
		t.Fatalf("paid+commission=%s want %s", got, want)
	}
}

func TestSettle_EvenPoolsSingleWinner(t *testing.T) {
	m := openMatch("100", "100")
	ws := []ledger.Wager{
		wager(1, "ana", "100", ledger.Side1),
		wager(2, "bruno", "100", ledger.Side2),
	}
	out, err := mustEngine(t, "0.25").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.HouseCommission.Equal(d("25")) {
		t.Errorf("commission=%s want 25", out.HouseCommission)
	}
	if got := paidTo(t, out, "ana"); !got.Equal(d("175")) {
		t.Errorf("ana paid=%s want 175", got)
	}
	if got := paidTo(t, out, "bruno"); !got.IsZero() {
		t.Errorf("bruno paid=%s want 0", got)
	}
	if len(out.Credits) != 1 || out.Credits[0].BettorName != "ana" {
		t.Fatalf("credits=%+v", out.Credits)
	}
	assertConserved(t, m, out)
}

func TestSettle_EightyEighty(t *testing.T) {
	m := openMatch("80", "80")
	ws := []ledger.Wager{
		wager(1, "A", "80", ledger.Side1),
		wager(2, "B", "80", ledger.Side2),
	}
	out, err := mustEngine(t, "0.25").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.HouseCommission.Equal(d("20")) {
		t.Errorf("commission=%s want 20", out.HouseCommission)
	}
	if got := paidTo(t, out, "A"); !got.Equal(d("140")) {
		t.Errorf("A paid=%s want 140", got)
	}
	if got := paidTo(t, out, "B"); !got.IsZero() {
		t.Errorf("B paid=%s want 0", got)
	}
	if len(out.Records) != 2 {
		t.Fatalf("records=%d want 2", len(out.Records))
	}
	// vencedoras primeiro
	if out.Records[0].BettorName != "A" || out.Records[0].WinningSide != ledger.Side1 {
		t.Errorf("first record=%+v", out.Records[0])
	}
}

func TestSettle_UnequalTotalsProRata(t *testing.T) {
	m := openMatch("100", "50")
	ws := []ledger.Wager{
		wager(1, "A", "30", ledger.Side1),
		wager(2, "B", "70", ledger.Side1),
		wager(3, "C", "50", ledger.Side2),
	}
	out, err := mustEngine(t, "0.25").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.Unbalanced() {
		t.Errorf("expected unbalanced outcome")
	}
	if !out.HouseCommission.Equal(d("12.5")) {
		t.Errorf("commission=%s want 12.5", out.HouseCommission)
	}
	if !out.Distributable.Equal(d("137.5")) {
		t.Errorf("distributable=%s want 137.5", out.Distributable)
	}
	if got := paidTo(t, out, "A"); !got.Equal(d("41.25")) {
		t.Errorf("A paid=%s want 41.25", got)
	}
	if got := paidTo(t, out, "B"); !got.Equal(d("96.25")) {
		t.Errorf("B paid=%s want 96.25", got)
	}
	assertConserved(t, m, out)
}

func TestSettle_EmptyWinningPool(t *testing.T) {
	m := openMatch("0", "50")
	ws := []ledger.Wager{wager(1, "C", "50", ledger.Side2)}
	out, err := mustEngine(t, "0.25").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.HouseCommission.Equal(d("50")) {
		t.Errorf("commission=%s want 50", out.HouseCommission)
	}
	if len(out.Credits) != 0 {
		t.Errorf("credits=%+v want none", out.Credits)
	}
	if len(out.Records) != 1 || !out.Records[0].PaidOut.IsZero() {
		t.Fatalf("records=%+v", out.Records)
	}
	assertConserved(t, m, out)
}

func TestSettle_NoWagersAtAll(t *testing.T) {
	m := openMatch("0", "0")
	out, err := mustEngine(t, "0.25").Settle(m, nil, ledger.Side2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !out.HouseCommission.IsZero() || len(out.Records) != 0 {
		t.Fatalf("outcome=%+v", out)
	}
}

func TestSettle_LargestRemainderTieGoesToLowestID(t *testing.T) {
	m := openMatch("30", "10")
	ws := []ledger.Wager{
		wager(1, "a", "10", ledger.Side1),
		wager(2, "b", "10", ledger.Side1),
		wager(3, "c", "10", ledger.Side1),
		wager(4, "d", "10", ledger.Side2),
	}
	out, err := mustEngine(t, "0").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := map[string]string{"a": "13.34", "b": "13.33", "c": "13.33", "d": "0"}
	for bettor, amt := range want {
		if got := paidTo(t, out, bettor); !got.Equal(d(amt)) {
			t.Errorf("%s paid=%s want %s", bettor, got, amt)
		}
	}
	assertConserved(t, m, out)
}

func TestSettle_LargestRemainderWins(t *testing.T) {
	m := openMatch("3", "1")
	ws := []ledger.Wager{
		wager(1, "small", "1", ledger.Side1),
		wager(2, "big", "2", ledger.Side1),
		wager(3, "loser", "1", ledger.Side2),
	}
	out, err := mustEngine(t, "0").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := paidTo(t, out, "small"); !got.Equal(d("1.33")) {
		t.Errorf("small paid=%s want 1.33", got)
	}
	if got := paidTo(t, out, "big"); !got.Equal(d("2.67")) {
		t.Errorf("big paid=%s want 2.67", got)
	}
	assertConserved(t, m, out)
}

func TestSettle_SameBettorCreditsAggregated(t *testing.T) {
	m := openMatch("40", "40")
	ws := []ledger.Wager{
		wager(1, "zoe", "10", ledger.Side1),
		wager(2, "ana", "10", ledger.Side1),
		wager(3, "zoe", "20", ledger.Side1),
		wager(4, "rui", "40", ledger.Side2),
	}
	out, err := mustEngine(t, "0.25").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// distributable = 40 + 30 = 70; zoe 30/40, ana 10/40
	if len(out.Credits) != 2 {
		t.Fatalf("credits=%+v", out.Credits)
	}
	if out.Credits[0].BettorName != "ana" || !out.Credits[0].Amount.Equal(d("17.5")) {
		t.Errorf("credit[0]=%+v want ana 17.5", out.Credits[0])
	}
	if out.Credits[1].BettorName != "zoe" || !out.Credits[1].Amount.Equal(d("52.5")) {
		t.Errorf("credit[1]=%+v want zoe 52.5", out.Credits[1])
	}
	assertConserved(t, m, out)
}

func TestSettle_FullCommission(t *testing.T) {
	m := openMatch("10", "30")
	ws := []ledger.Wager{
		wager(1, "a", "10", ledger.Side1),
		wager(2, "b", "30", ledger.Side2),
	}
	out, err := mustEngine(t, "1").Settle(m, ws, ledger.Side1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := paidTo(t, out, "a"); !got.Equal(d("10")) {
		t.Errorf("a paid=%s want stake back 10", got)
	}
	if !out.HouseCommission.Equal(d("30")) {
		t.Errorf("commission=%s want 30", out.HouseCommission)
	}
}

func TestSettle_TotalsMismatch(t *testing.T) {
	m := openMatch("100", "50")
	ws := []ledger.Wager{
		wager(1, "A", "90", ledger.Side1),
		wager(2, "C", "50", ledger.Side2),
	}
	_, err := mustEngine(t, "0.25").Settle(m, ws, ledger.Side1)
	if !errors.Is(err, ErrTotalsMismatch) {
		t.Fatalf("err=%v want ErrTotalsMismatch", err)
	}
}

func TestSettle_WagerFromOtherMatch(t *testing.T) {
	m := openMatch("10", "0")
	w := wager(1, "A", "10", ledger.Side1)
	w.MatchID = 99
	_, err := mustEngine(t, "0.25").Settle(m, []ledger.Wager{w}, ledger.Side1)
	if !errors.Is(err, ErrTotalsMismatch) {
		t.Fatalf("err=%v want ErrTotalsMismatch", err)
	}
}

func TestSettle_InvalidSide(t *testing.T) {
	_, err := mustEngine(t, "0.25").Settle(openMatch("0", "0"), nil, ledger.Side(3))
	if !errors.Is(err, ledger.ErrInvalidSide) {
		t.Fatalf("err=%v want ErrInvalidSide", err)
	}
}

func TestSettle_AlreadyResolved(t *testing.T) {
	m := openMatch("0", "0")
	m.State = ledger.MatchResolved
	_, err := mustEngine(t, "0.25").Settle(m, nil, ledger.Side1)
	if !errors.Is(err, ledger.ErrAlreadyResolved) {
		t.Fatalf("err=%v want ErrAlreadyResolved", err)
	}
}

func TestNewEngine_RateRange(t *testing.T) {
	for _, rate := range []string{"0", "0.25", "1"} {
		if _, err := NewEngine(d(rate)); err != nil {
			t.Errorf("rate %s: unexpected err %v", rate, err)
		}
	}
	for _, rate := range []string{"-0.01", "1.01"} {
		if _, err := NewEngine(d(rate)); err == nil {
			t.Errorf("rate %s: expected error", rate)
		}
	}
}

func TestSettle_ConservationAcrossRates(t *testing.T) {
	m := openMatch("33.33", "66.67")
	ws := []ledger.Wager{
		wager(1, "a", "11.11", ledger.Side1),
		wager(2, "b", "22.22", ledger.Side1),
		wager(3, "c", "66.67", ledger.Side2),
	}
	for _, rate := range []string{"0", "0.07", "0.25", "0.333", "1"} {
		out, err := mustEngine(t, rate).Settle(m, ws, ledger.Side1)
		if err != nil {
			t.Fatalf("rate %s: %v", rate, err)
		}
		assertConserved(t, m, out)
		for _, r := range out.Records {
			if !r.PaidOut.Equal(r.PaidOut.Round(2)) {
				t.Errorf("rate %s: %s paid %s not in cents", rate, r.BettorName, r.PaidOut)
			}
		}
	}
}
