package routes

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-engine/handlers"
	"github.com/Dosada05/league-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	League    *handlers.LeagueHandler
	Match     *handlers.MatchHandler
	WebSocket *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.ClientIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws/leagues/{leagueID}", h.WebSocket.ServeWs)

		r.Route("/leagues", func(r chi.Router) {
			r.With(authenticate).Post("/", h.League.Create)

			r.Route("/{leagueID}", func(r chi.Router) {
				r.Get("/", h.League.Get)
				r.Get("/matches", h.League.ListMatches)
				r.Get("/standings", h.League.Standings)
				r.Get("/completion", h.League.Completion)
				r.Get("/bracket", h.League.Bracket)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Delete("/", h.League.Delete)
					r.Post("/schedule", h.League.GenerateSchedule)
					r.Delete("/matches", h.League.ClearMatches)
					r.Post("/matches/approve", h.League.BulkApprove)
					r.Post("/playoffs/check", h.League.CheckPlayoffs)
				})
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/start", h.Match.Start)
			r.Post("/result", h.Match.SubmitResult)
			r.Post("/approve", h.Match.Approve)
			r.Post("/reject", h.Match.Reject)
			r.Post("/correct", h.Match.Correct)
			r.Post("/reschedule", h.Match.Reschedule)
			r.Post("/postpone", h.Match.Postpone)
			r.Post("/cancel", h.Match.Cancel)
			r.Post("/walkover", h.Match.Walkover)
		})
	})
}
