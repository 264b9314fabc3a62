package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/Dosada05/cricket-slots/handlers"
	"github.com/Dosada05/cricket-slots/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Waitlist      *handlers.WaitlistHandler
	Slots         *handlers.SlotHandler
	Schedule      *handlers.ScheduleHandler
	Notifications *handlers.NotificationHandler
	WebSocket     *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	// HealthCheck проверяет зависимости для /healthz; nil означает "всегда ок".
	HealthCheck func(ctx context.Context) error
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", healthHandler(opts.HealthCheck))
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	if opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		// Публичные маршруты
		r.Get("/slots", h.Slots.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/slots", h.Slots.Register)
			r.Delete("/slots/me", h.Slots.Withdraw)

			r.Post("/promote-waitlist", h.Waitlist.PromoteNext)
			r.Get("/promote-waitlist", h.Waitlist.GetStatus)

			r.Post("/schedule-images", h.Schedule.AttachImage)
		})
	})

	router.Route("/slots/{slotID}", func(r chi.Router) {
		r.Use(authenticate)

		r.Patch("/status", h.Slots.UpdateStatus)
		r.Delete("/", h.Slots.Remove)
	})

	router.Route("/notifications", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/", h.Notifications.List)
		r.Patch("/{notificationID}/read", h.Notifications.MarkRead)
	})
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
