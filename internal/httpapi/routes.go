package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// Routes assembles the router. All draft operations are season-scoped.
func (a *API) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", a.healthz)

	r.Route("/seasons/{seasonID}/draft", func(r chi.Router) {
		r.Post("/", a.createSession)
		r.Get("/", a.getView)

		r.Post("/participants", a.addParticipant)
		r.Post("/lobby", a.openLobby)
		r.Post("/ready", a.toggleReady)

		r.Post("/picks", a.submitPick)

		r.Post("/start", a.start)
		r.Post("/pause", a.pause)
		r.Post("/resume", a.resume)
		r.Post("/end", a.end)
		r.Post("/advance", a.advance)
		r.Post("/undo", a.undo)
		r.Post("/force-pick", a.forcePick)

		r.Get("/teams/{teamID}/watchlist", a.getWatchlist)
		r.Put("/teams/{teamID}/watchlist", a.updateWatchlist)

		r.Post("/heartbeat", a.heartbeat)
		r.Get("/ws", a.websocket)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
