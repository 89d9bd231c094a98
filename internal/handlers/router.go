package handlers

import (
	"net/http"
	"time"

	"github.com/duelhub/duel/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// NewRouter mounts the WebSocket endpoint and the lobby API.
func (h *Hub) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(h.log))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", h.ServeWS)

	r.Route("/api", func(r chi.Router) {
		rate := h.cfg.RateLimit
		if rate <= 0 {
			rate = 60
		}
		r.Use(httprate.LimitByIP(rate, time.Minute))
		r.Get("/games", h.ListGamesHandler)
		r.Get("/goose/games", h.ListGooseGamesHandler)
		r.Get("/stats", h.StatsHandler)
	})
	return r
}
