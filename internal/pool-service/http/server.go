package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bcabanag-design/casa-apuestas-completa/internal/ledger"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/dto"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/pool-service/service"
	"github.com/bcabanag-design/casa-apuestas-completa/internal/report"
)

// Pool é o conjunto de operações do pool usado pelos handlers
type Pool interface {
	RegisterBettor(ctx context.Context, name string, initial decimal.Decimal) (ledger.Bettor, error)
	AdjustBalance(ctx context.Context, name string, delta decimal.Decimal) (ledger.Bettor, error)
	CreateMatch(ctx context.Context, side1, side2 string) (ledger.Match, error)
	PlaceWager(ctx context.Context, matchID int64, bettor string, amount decimal.Decimal, side ledger.Side) (ledger.Wager, error)
	ResolveMatch(ctx context.Context, matchID int64, winner ledger.Side) (service.Resolution, error)
	PurgeResolvedHistory(ctx context.Context) (service.PurgeResult, error)

	ListBettors(ctx context.Context) ([]ledger.Bettor, error)
	GetBettor(ctx context.Context, name string) (ledger.Bettor, error)
	ListMatches(ctx context.Context, state ledger.MatchState) ([]ledger.Match, error)
	GetMatch(ctx context.Context, id int64) (ledger.Match, error)
	ListWagers(ctx context.Context, matchID int64) ([]ledger.Wager, error)
}

// Reports entrega o relatório consolidado
type Reports interface {
	Get(ctx context.Context) (report.Snapshot, error)
	Invalidate(ctx context.Context) error
}

// Server expõe a API REST do pool
type Server struct {
	log     *zap.Logger
	pool    Pool
	reports Reports

	// WS é o handler do feed ao vivo (opcional)
	WS          http.HandlerFunc
	CORSOrigins []string
}

func NewServer(log *zap.Logger, pool Pool, reports Reports) *Server {
	return &Server{log: log, pool: pool, reports: reports}
}

// Router retorna o roteador chi com middlewares e rotas /v1
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if s.WS != nil {
		r.Get("/ws", s.WS)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Route("/v1", func(r chi.Router) {
			r.Post("/bettors", s.registerBettor)
			r.Get("/bettors", s.listBettors)
			r.Get("/bettors/{name}", s.getBettor)
			r.Post("/bettors/{name}/adjust", s.adjustBalance)

			r.Post("/matches", s.createMatch)
			r.Get("/matches", s.listMatches)
			r.Get("/matches/{id}", s.getMatch)
			r.Get("/matches/{id}/wagers", s.listWagers)
			r.Post("/matches/{id}/wagers", s.placeWager)
			r.Post("/matches/{id}/resolve", s.resolveMatch)

			r.Post("/history/purge", s.purgeHistory)
			r.Get("/reports", s.getReports)
			r.Get("/reports/export", s.exportReports)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}

// writeError traduz os erros do ledger em status HTTP
func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := dto.ErrorResponse{Error: err.Error()}

	var insuf *ledger.InsufficientFundsError
	switch {
	case errors.As(err, &insuf):
		short := insuf.Shortfall()
		resp.Balance = &insuf.Balance
		resp.Shortfall = &short
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidSide),
		errors.Is(err, ledger.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, ledger.ErrDuplicateKey),
		errors.Is(err, ledger.ErrAlreadyResolved):
		writeJSON(w, http.StatusConflict, resp)
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func matchID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) registerBettor(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterBettorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	b, err := s.pool.RegisterBettor(r.Context(), req.Name, req.Balance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateReports(r.Context())
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) listBettors(w http.ResponseWriter, r *http.Request) {
	bs, err := s.pool.ListBettors(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if bs == nil {
		bs = []ledger.Bettor{}
	}
	writeJSON(w, http.StatusOK, bs)
}

// bettorName lê {name}. Com %XX no path o chi roteia pelo RawPath e o
// parâmetro chega escapado.
func bettorName(r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, true
	}
	name, err := url.PathUnescape(name)
	return name, err == nil
}

func (s *Server) getBettor(w http.ResponseWriter, r *http.Request) {
	name, ok := bettorName(r)
	if !ok {
		badRequest(w, "invalid bettor name")
		return
	}
	b, err := s.pool.GetBettor(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) adjustBalance(w http.ResponseWriter, r *http.Request) {
	name, ok := bettorName(r)
	if !ok {
		badRequest(w, "invalid bettor name")
		return
	}
	var req dto.AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	b, err := s.pool.AdjustBalance(r.Context(), name, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateReports(r.Context())
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	m, err := s.pool.CreateMatch(r.Context(), req.Side1, req.Side2)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// listMatches aceita ?state=OPEN|RESOLVED; sem filtro lista todas
func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	state := ledger.MatchState(r.URL.Query().Get("state"))
	switch state {
	case "", ledger.MatchOpen, ledger.MatchResolved:
	default:
		badRequest(w, "state must be OPEN or RESOLVED")
		return
	}
	ms, err := s.pool.ListMatches(r.Context(), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ms == nil {
		ms = []ledger.Match{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		badRequest(w, "invalid match id")
		return
	}
	m, err := s.pool.GetMatch(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		badRequest(w, "invalid match id")
		return
	}
	ws, err := s.pool.ListWagers(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ws == nil {
		ws = []ledger.Wager{}
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) placeWager(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		badRequest(w, "invalid match id")
		return
	}
	var req dto.PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	wg, err := s.pool.PlaceWager(r.Context(), id, req.Bettor, req.Amount, ledger.Side(req.Side))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateReports(r.Context())
	writeJSON(w, http.StatusCreated, wg)
}

func (s *Server) resolveMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		badRequest(w, "invalid match id")
		return
	}
	var req dto.ResolveMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	res, err := s.pool.ResolveMatch(r.Context(), id, ledger.Side(req.WinningSide))
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := dto.ResolveMatchResponse{
		Match:           res.Match,
		WinnerName:      res.Match.SideName(res.Outcome.WinningSide),
		HouseCommission: res.Outcome.HouseCommission,
		WinnerBonusPool: res.Outcome.WinnerBonusPool,
		Distributable:   res.Outcome.Distributable,
		Payouts:         []dto.PayoutResponse{},
	}
	for _, rec := range res.Outcome.Records {
		out.Payouts = append(out.Payouts, dto.PayoutResponse{
			Bettor:  rec.BettorName,
			Side:    int(rec.ChosenSide),
			Staked:  rec.Staked,
			PaidOut: rec.PaidOut,
		})
	}
	s.invalidateReports(r.Context())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) purgeHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.pool.PurgeResolvedHistory(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateReports(r.Context())
	writeJSON(w, http.StatusOK, res)
}

// invalidateReports descarta o snapshot após cada escrita; o projector o remonta ao consumir o evento
func (s *Server) invalidateReports(ctx context.Context) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Invalidate(ctx); err != nil {
		s.log.Warn("report cache invalidate failed", zap.Error(err))
	}
}

func (s *Server) getReports(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reports.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// exportReports devolve o mesmo relatório em CSV para download
func (s *Server) exportReports(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reports.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="pool_report.csv"`)
	if err := report.WriteCSV(w, snap); err != nil {
		s.log.Warn("report export failed", zap.Error(err))
	}
}
