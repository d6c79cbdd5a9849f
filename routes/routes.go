package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/fair-measure/docs" // swagger spec
	"github.com/Dosada05/fair-measure/handlers"
	"github.com/Dosada05/fair-measure/metrics"
	"github.com/Dosada05/fair-measure/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Profile     *handlers.ProfileHandler
	Competition *handlers.CompetitionHandler
	Member      *handlers.MemberHandler
	WebSocket   *handlers.WebSocketHandler
	Health      http.HandlerFunc
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Get("/healthz", h.Health)
	router.Handle("/metrics", metrics.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// WebSocket без таймаута запроса: соединение долгоживущее.
	router.Get("/ws/competitions/{competitionID}", h.WebSocket.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.With(authenticate).Get("/", h.Profile.Search)
			r.With(authenticate).Put("/me/avatar", h.Profile.UploadAvatar)
			r.Get("/{userID}", h.Profile.GetByID)
		})

		r.Route("/competitions", func(r chi.Router) {
			r.With(authenticate).Post("/", h.Competition.Create)
			r.With(authenticate).Get("/", h.Competition.List)

			r.Route("/{competitionID}", func(r chi.Router) {
				r.Get("/", h.Competition.GetByID)
				r.Get("/members", h.Member.ListByCompetition)
				r.With(authenticate).Post("/members", h.Member.Add)
			})
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/user/{userID}", h.Member.ListByUser)
			r.Get("/check/{competitionID}/{userID}", h.Member.Check)
			r.With(authenticate).Delete("/{memberID}", h.Member.Remove)
		})
	})
}
