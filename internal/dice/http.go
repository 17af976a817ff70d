package dice

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const serviceName = "Dice Betting Service"

type betRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Server expõe o jogo de dados via HTTP
type Server struct {
	log  *zap.Logger
	game *Game

	CORSOrigins []string
	OnBet       func(result string)
}

func NewServer(log *zap.Logger, g *Game) *Server { return &Server{log: log, game: g} }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.home)
	r.Get("/health", s.health)
	r.Get("/balance", s.balance)
	r.Post("/reset", s.reset)
	r.Post("/bet", s.bet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"service": serviceName,
		"message": serviceName + " is running",
		"routes":  []string{"/balance", "/reset", "/bet"},
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"balance": s.game.Balance(),
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	bal := s.game.Reset()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"new_balance": bal,
		"message":     "Balance reset to " + bal.StringFixed(2),
	})
}

func (s *Server) bet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": "invalid bet amount"})
		return
	}
	roll, err := s.game.Bet(req.Amount)
	if errors.Is(err, ErrInvalidBet) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	s.log.Info("dice bet",
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.Int("sum", roll.Sum),
		zap.String("result", roll.Result),
		zap.String("balance", roll.NewBalance.StringFixed(2)))
	if s.OnBet != nil {
		s.OnBet(roll.Result)
	}

	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Roll
	}{Status: "success", Roll: roll})
}
