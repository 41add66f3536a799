package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/churchapp/backend/docs"
	mW "github.com/churchapp/backend/internal/middleware"
	"github.com/churchapp/backend/internal/models"
)

// Pinger reports backing store health; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Auth       AuthService
	Attendance AttendanceService
	Travel     TravelService
	Gym        GymService
	Users      UserService
	CrashLogs  CrashLogService

	DB         Pinger
	Redis      *redis.Client
	Production bool
	// AuthRateLimit caps public auth requests per IP per minute; 0 disables it.
	AuthRateLimit int
	// TrustProxy honours X-Forwarded-For and X-Real-IP from the fronting proxy.
	TrustProxy bool
}

func NewRouter(d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Auth, d.Production)
	attendanceHandler := NewAttendanceHandler(d.Attendance, d.Production)
	travelHandler := NewTravelHandler(d.Travel, d.Production)
	gymHandler := NewGymHandler(d.Gym, d.Production)
	userHandler := NewUserHandler(d.Users, d.Production)
	crashLogHandler := NewCrashLogHandler(d.CrashLogs, d.Production)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(mW.ClientIP(d.TrustProxy))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				status, code = "database unavailable", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	requireAuth := mW.RequireAuth(d.Auth)
	adminOnly := mW.RequireRole(models.AdminRoles...)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mW.RateLimit(d.Redis, "ratelimit:auth", d.AuthRateLimit, time.Minute))
				r.Post("/check-phone", authHandler.CheckPhone)
				r.Post("/send-code", authHandler.SendCode)
				r.Post("/verify-code", authHandler.VerifyCode)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Get("/sessions", authHandler.Sessions)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/crash-logs", func(r chi.Router) {
			r.With(mW.OptionalAuth(d.Auth)).Post("/", crashLogHandler.Create)
			r.With(requireAuth, adminOnly).Get("/", crashLogHandler.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/attendance", func(r chi.Router) {
				r.Use(mW.RequireRole(models.AttendanceRoles...))
				r.Post("/", attendanceHandler.Submit)
				r.Get("/", attendanceHandler.List)
				r.Get("/{id}", attendanceHandler.Get)
				r.Delete("/{id}", attendanceHandler.Delete)
			})

			r.Route("/travel", func(r chi.Router) {
				r.Get("/", travelHandler.List)
				r.Get("/overlaps", travelHandler.Overlaps)
				r.Post("/", travelHandler.Create)
				r.Put("/{id}", travelHandler.Update)
				r.Delete("/{id}", travelHandler.Delete)
			})

			r.Route("/gym", func(r chi.Router) {
				r.Get("/time-slots/{date}", gymHandler.TimeSlots)
				r.Get("/reservations", gymHandler.ListReservations)
				r.Post("/reservations", gymHandler.CreateReservation)
				r.Post("/reservations/{id}/check-in", gymHandler.CheckIn)
				r.Post("/reservations/{id}/check-out", gymHandler.CheckOut)
				r.Post("/reservations/{id}/cancel", gymHandler.Cancel)
				r.Get("/reservations/{id}/qr", gymHandler.ReservationQR)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(adminOnly).Get("/", userHandler.List)
				r.With(adminOnly).Post("/", userHandler.Create)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})
		})
	})

	return r
}
