package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Targets são as URLs base dos serviços atrás do gateway
type Targets struct {
	Pool string
	Dice string
}

func proxy(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid target url %q", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// NewRouter monta as rotas públicas:
//
//	/api/pool/* -> pool-service (inclui /ws)
//	/api/dice/* -> dice-service
func NewRouter(t Targets, origins []string) (http.Handler, error) {
	pool, err := proxy(t.Pool)
	if err != nil {
		return nil, err
	}
	dice, err := proxy(t.Dice)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api/pool", http.StripPrefix("/api/pool", pool))
	r.Mount("/api/dice", http.StripPrefix("/api/dice", dice))
	return r, nil
}
