package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartrack-backend/internal/cache"
	"cartrack-backend/internal/config"
	"cartrack-backend/internal/database"
	"cartrack-backend/internal/handlers"
	"cartrack-backend/internal/logger"
	"cartrack-backend/internal/middleware"
	"cartrack-backend/internal/models"
	"cartrack-backend/internal/services"
	"cartrack-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "cartrack-backend")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("🚀 CARTRACK BACKEND SERVER STARTING")
	if cfg.EnvFileLoaded {
		log.Info("✅ .env file loaded")
	} else {
		log.Info("⚠️  .env file not found, using environment variables from system")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ FATAL ERROR: invalid configuration", zap.Error(err))
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("❌ FATAL ERROR: Database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		log.Fatal("❌ FATAL ERROR: Database migrations failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemoData {
		if err := database.SeedDemoData(ctx, db, log); err != nil {
			log.Fatal("❌ FATAL ERROR: Demo data seeding failed", zap.Error(err))
		}
	}

	// Dashboard cache is optional
	var dashboards *cache.DashboardCache
	if cfg.RedisURL != "" {
		dashboards, err = cache.New(ctx, cfg.RedisURL, cfg.DashboardCacheTTL, log)
		if err != nil {
			log.Warn("⚠️  Redis unavailable, dashboard cache disabled", zap.Error(err))
			dashboards = nil
		} else {
			log.Info("✅ Dashboard cache connected")
		}
	}
	defer dashboards.Close()

	// Push notifications are optional
	var notifier services.DeliveryNotifier
	if fcmService := initFCM(ctx, cfg, log); fcmService != nil {
		notifier = services.NewDeliveryPushNotifier(fcmService, db, log)
	}

	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)
	log.Info("✅ WebSocket hub started")

	mailer := services.NewSMTPMailer(cfg.SMTPTimeout, log)
	dispatcher := services.NewDispatchService(db, mailer, notifier, cfg.Location, log)
	resolver := services.NewCompanyResolver(db, log)
	reportService := services.NewReportService(db, resolver, dispatcher, wsHub, invalidator(dashboards), log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", handlers.Health(wsHub))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret, log))

	r.Route("/api", func(r chi.Router) {
		// Authentication routes (no auth required)
		r.Post("/auth/login", handlers.Login(db, cfg.JWTSecret, cfg.JWTTTL, log))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, log))

			r.Get("/auth/me", handlers.Me(db, log))

			// SMTP settings
			r.Get("/profile/smtp", handlers.GetSMTPSettings(db, log))
			r.Put("/profile/smtp", handlers.UpdateSMTPSettings(db, log))
			r.Post("/profile/test-email", handlers.SendTestEmail(db, dispatcher, log))

			// Companies
			r.Get("/companies", handlers.GetCompanies(db, log))
			r.Put("/companies/active", handlers.SetActiveCompany(db, log))

			// Reports (export registered before {id})
			r.Get("/reports", handlers.ListReports(reportService, log))
			r.Post("/reports", handlers.CreateReport(reportService, log))
			r.Get("/reports/export", handlers.ExportReports(db, cfg.Location, log))
			r.Get("/reports/{id}", handlers.GetReport(reportService, log))
			r.Patch("/reports/{id}", handlers.UpdateReport(reportService, log))
			r.Delete("/reports/{id}", handlers.DeleteReport(reportService, log))
			r.Post("/reports/{id}/send", handlers.SendReport(reportService, log))
			r.Post("/reports/{id}/cancel", handlers.CancelReport(reportService, log))

			// Recipients
			r.Get("/recipients", handlers.ListRecipients(db, log))
			r.Post("/recipients", handlers.CreateRecipient(db, log))
			r.Patch("/recipients/{id}", handlers.UpdateRecipient(db, log))
			r.Delete("/recipients/{id}", handlers.DeleteRecipient(db, log))

			// FCM token registration
			r.Post("/devices", handlers.RegisterDevice(db, log))

			r.Get("/dashboard", handlers.GetUserDashboard(db, resolver, dashboards, cfg.Location, log))
		})

		// Admin endpoints (require authentication + admin role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, log))
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/admin/dashboard", handlers.GetAdminDashboard(db, dashboards, cfg.Location, log))
			r.Post("/admin/users", handlers.CreateUser(db, log))
			r.Post("/admin/companies", handlers.CreateCompany(db, log))
			r.Post("/admin/companies/{id}/members", handlers.AddCompanyMember(db, log))
		})
	})

	// Dispatch holds the request open for the SMTP exchange
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.SMTPTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("🌐 Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Graceful shutdown failed", zap.Error(err))
	}
}

// initFCM prefers base64 credentials (cloud deployments) and falls back to the file
func initFCM(ctx context.Context, cfg *config.Config, log *zap.Logger) *services.FCMService {
	if cfg.FirebaseCredentialsBase64 != "" {
		fcmService, err := services.NewFCMServiceFromBase64(ctx, cfg.FirebaseCredentialsBase64, log)
		if err != nil {
			log.Warn("⚠️  Failed to initialize FCM from base64 (push notifications disabled)", zap.Error(err))
			return nil
		}
		log.Info("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return fcmService
	}

	if _, err := os.Stat(cfg.FirebaseCredentialsFile); err != nil {
		log.Info("ℹ️  No Firebase credentials file, push notifications disabled", zap.String("path", cfg.FirebaseCredentialsFile))
		return nil
	}
	fcmService, err := services.NewFCMService(ctx, cfg.FirebaseCredentialsFile, log)
	if err != nil {
		log.Warn("⚠️  Failed to initialize FCM from file (push notifications disabled)", zap.Error(err))
		return nil
	}
	log.Info("✅ Firebase Cloud Messaging initialized from file")
	return fcmService
}

// invalidator keeps a nil cache from becoming a non-nil interface
func invalidator(dashboards *cache.DashboardCache) services.DashboardInvalidator {
	if dashboards == nil {
		return nil
	}
	return dashboards
}
