package main

import (
	"context"
	"log"
	"time"

	"tradie_legal_go/config"
	"tradie_legal_go/db"
	"tradie_legal_go/handlers"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"
	"tradie_legal_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Subscription{},
		&models.Application{},
		&models.Case{},
		&models.CaseDocument{},
		&models.GeneratedDocument{},
		&models.Contract{},
		&models.TimelineEntry{},
		&models.Notification{},
		&models.OutboxTask{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Collaborator adapters (all degrade gracefully without credentials)
	services.InitializeStorage(cfg)
	services.InitializePayments(cfg)
	aiGenerator := services.NewAIGenerator(cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Public routes (no authentication required)
	e.POST("/api/auth/register", handlers.RegisterHandler)
	e.POST("/api/auth/login", handlers.LoginHandler)
	e.POST("/api/applications", handlers.SubmitApplicationHandler)
	e.POST("/api/webhooks/stripe", handlers.StripeWebhookHandler)

	// Authenticated routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/auth/logout", handlers.LogoutHandler)
		api.GET("/auth/me", handlers.MeHandler)

		// Applications
		api.GET("/applications", handlers.ListMyApplicationsHandler)
		api.GET("/applications/:id", handlers.GetApplicationHandler)
		api.POST("/applications/:id/intake", handlers.CompleteIntakeHandler)
		api.POST("/applications/:id/payment-intent", handlers.CreatePaymentIntentHandler)

		// Cases and evidence
		api.POST("/cases", handlers.CreateCaseHandler)
		api.GET("/cases", handlers.ListCasesHandler)
		api.GET("/cases/:id", handlers.GetCaseHandler)
		api.PUT("/cases/:id/status", handlers.UpdateCaseStatusHandler)
		api.POST("/cases/:id/evidence", handlers.UploadEvidenceHandler)
		api.GET("/cases/:id/evidence", handlers.ListEvidenceHandler)
		api.GET("/cases/:id/evidence/:did", handlers.DownloadEvidenceHandler)
		api.DELETE("/cases/:id/evidence/:did", handlers.DeleteEvidenceHandler)

		// Generated documents (owner view)
		api.GET("/documents/:id", handlers.GetGeneratedDocumentHandler)
		api.GET("/documents/:id/pdf", handlers.DownloadDocumentPDFHandler)

		// Contracts
		api.POST("/contracts", handlers.CreateContractHandler)
		api.GET("/contracts", handlers.ListContractsHandler)
		api.GET("/contracts/:id", handlers.GetContractHandler)
		api.PUT("/contracts/:id", handlers.UpdateContractHandler)
		api.POST("/contracts/:id/finalize", handlers.FinalizeContractHandler)
		api.POST("/contracts/:id/sign", handlers.SignContractHandler)
		api.GET("/contracts/:id/pdf", handlers.DownloadContractPDFHandler)

		// Timeline
		api.POST("/timeline", handlers.CreateTimelineEntryHandler)
		api.GET("/timeline", handlers.ListTimelineEntriesHandler)
		api.PUT("/timeline/:id", handlers.UpdateTimelineEntryHandler)
		api.POST("/timeline/:id/complete", handlers.CompleteTimelineEntryHandler)
		api.DELETE("/timeline/:id", handlers.DeleteTimelineEntryHandler)
		api.GET("/timeline/:id/ics", handlers.DownloadTimelineICSHandler)

		// Notifications
		api.GET("/notifications", handlers.ListNotificationsHandler)
		api.GET("/notifications/unread-count", handlers.UnreadCountHandler)
		api.POST("/notifications/:id/read", handlers.MarkNotificationReadHandler)
		api.POST("/notifications/read-all", handlers.MarkAllNotificationsReadHandler)
		api.POST("/notifications/:id/archive", handlers.ArchiveNotificationHandler)

		// Subscription and entitlements
		api.GET("/subscription", handlers.SubscriptionStatusHandler)
		api.GET("/subscription/can-create/:entity", handlers.EntitlementCheckHandler)

		// Admin-only routes
		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/applications", handlers.ListApplicationsHandler)
			admin.POST("/applications/:id/review", handlers.ReviewApplicationHandler)
			admin.GET("/applications/export", handlers.ExportApplicationsHandler)

			admin.POST("/cases/:id/documents", handlers.GenerateDocumentHandler)

			admin.GET("/documents", handlers.ListReviewQueueHandler)
			admin.PUT("/documents/:id", handlers.UpdateDocumentContentHandler)
			admin.PUT("/documents/:id/review", handlers.ReviewDocumentHandler)
			admin.POST("/documents/:id/send", handlers.SendDocumentHandler)

			admin.GET("/insights/pending-review", handlers.PendingReviewInsightsHandler)
		}
	}

	// Outbox worker: drains durable side-effect tasks every few seconds
	worker := jobs.NewOutboxWorker(db.DB, cfg, aiGenerator)
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			worker.DrainOnce(context.Background())
		}
	}()

	// Deadline sweep: marks overdue entries and raises reminders
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			jobs.SweepDeadlines(db.DB)
		}
	}()

	// Session cleanup (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
