package routes

import (
	"net/http"

	"github.com/Maxxvall/OBNLIGA-sub002/handlers"
	"github.com/Maxxvall/OBNLIGA-sub002/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	finalizationHandler *handlers.FinalizationHandler,
	seasonHandler *handlers.SeasonHandler,
	ratingHandler *handlers.RatingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Get("/ws/seasons/{seasonID}", webSocketHandler.ServeWs)

	router.Route("/seasons/{seasonID}", func(r chi.Router) {
		r.Get("/standings", seasonHandler.GetStandings)
	})
	router.Get("/ratings", ratingHandler.Leaderboard)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(middleware.RoleAdmin))

		r.Post("/matches/{matchID}/finalize", finalizationHandler.FinalizeMatch)
		r.Post("/templates/refresh", finalizationHandler.RefreshTemplates)
	})
}
