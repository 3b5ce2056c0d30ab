package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/themind/internal/middleware"
)

// NewRouter wires every route. All /game routes need an authenticated caller
// and mutating ones a valid anti-forgery token.
func NewRouter(gs *GameServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(gs.Logger))

	r.Get("/healthz", Healthz)

	r.Route("/game", func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Use(middleware.RequireCSRF)

		r.Post("/create", CreateGameHandler(gs))
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/state", GameStateHandler(gs))
			r.Post("/join", JoinGameHandler(gs))
			r.Post("/play_card", PlayCardHandler(gs))
			r.Post("/use_shuriken", UseShurikenHandler(gs))
			r.Post("/admin_action", AdminActionHandler(gs))
		})
	})
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}
