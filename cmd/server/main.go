package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/churchapp/backend/docs"
	"github.com/churchapp/backend/internal/audit"
	"github.com/churchapp/backend/internal/config"
	"github.com/churchapp/backend/internal/database"
	"github.com/churchapp/backend/internal/events"
	"github.com/churchapp/backend/internal/handlers"
	"github.com/churchapp/backend/internal/scheduler"
	"github.com/churchapp/backend/internal/services"
)

// @title Church Membership API
// @version 1.0
// @description Attendance, gym booking, travel schedules and phone login for church members
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
	docs.SwaggerInfo.BasePath = "/api"

	ctx := context.Background()

	db := database.InitDatabase(ctx, cfg.Database)
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := database.InitRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher := events.NewAsyncPublisher(
			events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.DialTimeout),
			cfg.AMQP.Buffer, cfg.AMQP.DialTimeout)
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	auditLogger := audit.NewLogger()

	sessionService := services.NewSessionService(db)
	userService := services.NewUserService(db, sessionService, auditLogger)
	verificationService := services.NewVerificationService(db, redisClient, config.LoadVerificationConfig())
	smsSender := services.NewSMSSender(cfg.SMS, cfg.IsProduction())
	authService := services.NewAuthService(userService, sessionService, verificationService, smsSender, redisClient, cfg.JWT, cfg.Auth)
	attendanceService := services.NewAttendanceService(db, auditLogger)
	travelService := services.NewTravelService(db, auditLogger)
	gymService := services.NewGymService(db, cfg.Gym, cfg.Location(), publisher, auditLogger)
	crashLogService := services.NewCrashLogService(db)

	if seeded, err := userService.EnsureDefaultUsers(ctx, cfg.Whitelist); err != nil {
		log.Printf("Warning: Failed to seed default users: %v", err)
	} else if seeded > 0 {
		log.Printf("Seeded %d default users", seeded)
	}

	jobs := scheduler.New(scheduler.DefaultJobs(cfg.Gym, gymService, verificationService, sessionService)...)
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	router := handlers.NewRouter(handlers.Deps{
		Auth:          authService,
		Attendance:    attendanceService,
		Travel:        travelService,
		Gym:           gymService,
		Users:         userService,
		CrashLogs:     crashLogService,
		DB:            db,
		Redis:         redisClient,
		Production:    cfg.IsProduction(),
		AuthRateLimit: cfg.Auth.RateLimit,
		TrustProxy:    cfg.Server.TrustProxy,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Server.Port, cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobs.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
