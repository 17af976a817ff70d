package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
)

// Memory guarda o ledger em memória (STORE_DRIVER=memory e testes).
// Uma transação por vez: WithTx segura o lock de escrita e trabalha sobre uma cópia
// do estado, que só substitui o estado atual se fn terminar sem erro.
type Memory struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

type memState struct {
	bettors   map[string]ledger.Bettor
	matches   map[int64]ledger.Match
	wagers    []ledger.Wager
	records   []ledger.SettlementRecord
	nextMatch int64
	nextWager int64
	nextRec   int64
}

func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			bettors: make(map[string]ledger.Bettor),
			matches: make(map[int64]ledger.Match),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		bettors:   make(map[string]ledger.Bettor, len(s.bettors)),
		matches:   make(map[int64]ledger.Match, len(s.matches)),
		wagers:    append([]ledger.Wager(nil), s.wagers...),
		records:   append([]ledger.SettlementRecord(nil), s.records...),
		nextMatch: s.nextMatch,
		nextWager: s.nextWager,
		nextRec:   s.nextRec,
	}
	for k, v := range s.bettors {
		c.bettors[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	return c
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{s: work, now: m.now}); err != nil {
		return err
	}
	// contexto cancelado durante fn descarta a transação, como um rollback
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *Memory) ListBettors(ctx context.Context) ([]ledger.Bettor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.sortedBettors(), nil
}

func (s *memState) sortedBettors() []ledger.Bettor {
	out := make([]ledger.Bettor, 0, len(s.bettors))
	for _, b := range s.bettors {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) GetBettor(ctx context.Context, name string) (ledger.Bettor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.state.bettors[name]
	if !ok {
		return b, fmt.Errorf("bettor %s: %w", name, ledger.ErrNotFound)
	}
	return b, nil
}

func (m *Memory) ListMatches(ctx context.Context, state ledger.MatchState) ([]ledger.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Match
	for _, mt := range m.state.matches {
		if state == "" || mt.State == state {
			out = append(out, mt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetMatch(ctx context.Context, id int64) (ledger.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.state.matches[id]
	if !ok {
		return mt, fmt.Errorf("match %d: %w", id, ledger.ErrNotFound)
	}
	return mt, nil
}

func (m *Memory) ListWagers(ctx context.Context, matchID int64) ([]ledger.Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.wagersFor(matchID), nil
}

func (m *Memory) ListSettlementRecords(ctx context.Context) ([]ledger.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]ledger.SettlementRecord(nil), m.state.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID > out[j].MatchID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) BettorTotals(ctx context.Context) ([]ledger.BettorTotals, error) {
	// saldos e registros lidos sob o mesmo lock
	m.mu.RLock()
	defer m.mu.RUnlock()
	bettors := m.state.sortedBettors()
	staked := make(map[string]decimal.Decimal)
	paid := make(map[string]decimal.Decimal)
	for _, r := range m.state.records {
		staked[r.BettorName] = staked[r.BettorName].Add(r.Staked)
		paid[r.BettorName] = paid[r.BettorName].Add(r.PaidOut)
	}
	out := make([]ledger.BettorTotals, 0, len(bettors))
	for _, b := range bettors {
		out = append(out, ledger.BettorTotals{
			Name:         b.Name,
			Balance:      b.Balance,
			TotalStaked:  staked[b.Name],
			TotalPaidOut: paid[b.Name],
		})
	}
	return out, nil
}

func (m *Memory) HouseProfit(ctx context.Context) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, mt := range m.state.matches {
		if mt.State == ledger.MatchResolved {
			total = total.Add(mt.HouseCommission)
		}
	}
	return total, nil
}

func (s *memState) wagersFor(matchID int64) []ledger.Wager {
	var out []ledger.Wager
	for _, w := range s.wagers {
		if w.MatchID == matchID {
			out = append(out, w)
		}
	}
	return out
}

type memTx struct {
	s   *memState
	now func() time.Time
}

func (t *memTx) InsertBettor(ctx context.Context, name string, balance decimal.Decimal) (ledger.Bettor, error) {
	if _, ok := t.s.bettors[name]; ok {
		return ledger.Bettor{}, fmt.Errorf("bettor %s: %w", name, ledger.ErrDuplicateKey)
	}
	now := t.now()
	b := ledger.Bettor{Name: name, Balance: balance, CreatedAt: now, UpdatedAt: now}
	t.s.bettors[name] = b
	return b, nil
}

func (t *memTx) LockBettor(ctx context.Context, name string) (ledger.Bettor, error) {
	b, ok := t.s.bettors[name]
	if !ok {
		return b, fmt.Errorf("bettor %s: %w", name, ledger.ErrNotFound)
	}
	return b, nil
}

func (t *memTx) AddBalance(ctx context.Context, name string, delta decimal.Decimal) (ledger.Bettor, error) {
	b, ok := t.s.bettors[name]
	if !ok {
		return b, fmt.Errorf("bettor %s: %w", name, ledger.ErrNotFound)
	}
	b.Balance = b.Balance.Add(delta)
	b.UpdatedAt = t.now()
	t.s.bettors[name] = b
	return b, nil
}

func (t *memTx) InsertMatch(ctx context.Context, side1, side2 string) (ledger.Match, error) {
	t.s.nextMatch++
	m := ledger.Match{
		ID:              t.s.nextMatch,
		Side1Name:       side1,
		Side2Name:       side2,
		Side1Total:      decimal.Zero,
		Side2Total:      decimal.Zero,
		State:           ledger.MatchOpen,
		HouseCommission: decimal.Zero,
		CreatedAt:       t.now(),
	}
	t.s.matches[m.ID] = m
	return m, nil
}

func (t *memTx) LockMatch(ctx context.Context, id int64) (ledger.Match, error) {
	m, ok := t.s.matches[id]
	if !ok {
		return m, fmt.Errorf("match %d: %w", id, ledger.ErrNotFound)
	}
	return m, nil
}

func (t *memTx) AddToSideTotal(ctx context.Context, matchID int64, side ledger.Side, amount decimal.Decimal) (ledger.Match, error) {
	m, ok := t.s.matches[matchID]
	if !ok {
		return m, fmt.Errorf("match %d: %w", matchID, ledger.ErrNotFound)
	}
	switch side {
	case ledger.Side1:
		m.Side1Total = m.Side1Total.Add(amount)
	case ledger.Side2:
		m.Side2Total = m.Side2Total.Add(amount)
	default:
		return m, fmt.Errorf("side %d: %w", side, ledger.ErrInvalidSide)
	}
	t.s.matches[matchID] = m
	return m, nil
}

func (t *memTx) MarkResolved(ctx context.Context, matchID int64, winner ledger.Side, commission decimal.Decimal) (ledger.Match, error) {
	m, ok := t.s.matches[matchID]
	if !ok {
		return m, fmt.Errorf("match %d: %w", matchID, ledger.ErrNotFound)
	}
	if m.State != ledger.MatchOpen {
		return m, fmt.Errorf("match %d: %w", matchID, ledger.ErrAlreadyResolved)
	}
	now := t.now()
	w := winner
	m.State = ledger.MatchResolved
	m.WinningSide = &w
	m.HouseCommission = commission
	m.ResolvedAt = &now
	t.s.matches[matchID] = m
	return m, nil
}

func (t *memTx) InsertWager(ctx context.Context, matchID int64, bettor string, amount decimal.Decimal, side ledger.Side) (ledger.Wager, error) {
	if _, ok := t.s.matches[matchID]; !ok {
		return ledger.Wager{}, fmt.Errorf("match %d: %w", matchID, ledger.ErrNotFound)
	}
	if _, ok := t.s.bettors[bettor]; !ok {
		return ledger.Wager{}, fmt.Errorf("bettor %s: %w", bettor, ledger.ErrNotFound)
	}
	t.s.nextWager++
	w := ledger.Wager{
		ID:         t.s.nextWager,
		MatchID:    matchID,
		BettorName: bettor,
		Amount:     amount,
		Side:       side,
		CreatedAt:  t.now(),
	}
	t.s.wagers = append(t.s.wagers, w)
	return w, nil
}

func (t *memTx) WagersForMatch(ctx context.Context, matchID int64) ([]ledger.Wager, error) {
	return t.s.wagersFor(matchID), nil
}

func (t *memTx) DeleteWagers(ctx context.Context, matchID int64) (int64, error) {
	kept := t.s.wagers[:0:0]
	var n int64
	for _, w := range t.s.wagers {
		if w.MatchID == matchID {
			n++
			continue
		}
		kept = append(kept, w)
	}
	t.s.wagers = kept
	return n, nil
}

func (t *memTx) InsertSettlementRecords(ctx context.Context, recs []ledger.SettlementRecord) error {
	now := t.now()
	for _, r := range recs {
		t.s.nextRec++
		r.ID = t.s.nextRec
		r.CreatedAt = now
		t.s.records = append(t.s.records, r)
	}
	return nil
}

func (t *memTx) PurgeResolved(ctx context.Context) (int64, int64, error) {
	var matches, records int64
	resolved := make(map[int64]bool)
	for id, m := range t.s.matches {
		if m.State == ledger.MatchResolved {
			resolved[id] = true
			delete(t.s.matches, id)
			matches++
		}
	}
	kept := t.s.records[:0:0]
	for _, r := range t.s.records {
		if resolved[r.MatchID] {
			records++
			continue
		}
		kept = append(kept, r)
	}
	t.s.records = kept
	return matches, records, nil
}
