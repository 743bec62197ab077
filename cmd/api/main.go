package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gridvolt/gridvolt-api/docs" // Swagger docs
	"github.com/gridvolt/gridvolt-api/internal/config"
	"github.com/gridvolt/gridvolt-api/internal/database"
	"github.com/gridvolt/gridvolt-api/internal/handlers"
	"github.com/gridvolt/gridvolt-api/internal/jobs"
	"github.com/gridvolt/gridvolt-api/internal/middleware"
	"github.com/gridvolt/gridvolt-api/internal/models"
	"github.com/gridvolt/gridvolt-api/internal/repository"
	"github.com/gridvolt/gridvolt-api/internal/services"
	"github.com/gridvolt/gridvolt-api/internal/storage"
	"github.com/gridvolt/gridvolt-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title GridVolt API
// @version 1.0
// @description REST API for GridVolt EV Battery Distribution Management
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@gridvolt.app

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Warn if Resend email is not configured
	if cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY or FROM_EMAIL not set. SLA escalation and welcome emails will be skipped.")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Initialize repositories
	repos := repository.NewRepositories(db)
	txManager := repository.NewTxManager(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, txManager, worker, store, cfg)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, store, worker)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Redirect root to swagger
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/users", h.User.Create)
				admin.PATCH("/users/:user_id", h.User.Update)
				admin.DELETE("/users/:user_id", h.User.Deactivate)

				admin.POST("/jobs/sla_sweep", h.Job.RunSLASweep)
				admin.GET("/jobs/stats", h.Job.Stats)
			}

			// Commercial roles: leads, accounts, deals
			commercial := protected.Group("")
			commercial.Use(middleware.RequireRole(
				models.RoleSales, models.RoleSalesHead,
				models.RoleBusinessHead, models.RoleFinanceController, models.RoleCEO,
			))
			{
				commercial.GET("/leads", h.Lead.Index)
				commercial.POST("/leads", h.Lead.Create)
				commercial.GET("/leads/:lead_id", h.Lead.Show)
				commercial.PATCH("/leads/:lead_id", h.Lead.Update)

				commercial.GET("/accounts", h.Account.Index)
				commercial.POST("/accounts", h.Account.Create)
				commercial.GET("/accounts/:account_id", h.Account.Show)
				commercial.PATCH("/accounts/:account_id", h.Account.Update)
				commercial.GET("/accounts/:account_id/credit_standing", h.Account.CreditStanding)

				// Static routes before :deal_id so stats/export resolve
				commercial.GET("/deals/stats", h.Deal.GetStats)
				commercial.GET("/deals/export", h.Deal.Export)
				commercial.GET("/deals", h.Deal.Index)
				commercial.POST("/deals", h.Deal.Create)
				commercial.GET("/deals/:deal_id", h.Deal.Show)
				commercial.PATCH("/deals/:deal_id", h.Deal.Update)
				commercial.POST("/deals/:deal_id/approve/:level", h.Deal.Approve)
				commercial.POST("/deals/:deal_id/reject", h.Deal.Reject)
				commercial.GET("/deals/:deal_id/approvals", h.Deal.Approvals)
				commercial.GET("/deals/:deal_id/summary_pdf", h.Deal.SummaryPDF)
			}

			// Operations roles: orders, inventory, provisions, disputes
			operations := protected.Group("")
			operations.Use(middleware.RequireRole(
				models.RoleSales, models.RoleSalesHead, models.RoleBusinessHead,
				models.RoleFinanceController, models.RoleCEO, models.RoleInventoryManager,
			))
			{
				operations.GET("/orders/stats", h.Order.GetStats)
				operations.GET("/orders", h.Order.Index)
				operations.POST("/orders", h.Order.Create)
				operations.GET("/orders/:order_id", h.Order.Show)
				operations.POST("/orders/:order_id/upload_pi", h.Order.UploadPI)
				operations.POST("/orders/:order_id/approve_pi/:level", h.Order.ApprovePI)
				operations.POST("/orders/:order_id/reject_pi", h.Order.RejectPI)
				operations.POST("/orders/:order_id/upload_invoice", h.Order.UploadInvoice)
				operations.POST("/orders/:order_id/approve_invoice", h.Order.ApproveInvoice)
				operations.POST("/orders/:order_id/reject_invoice", h.Order.RejectInvoice)
				operations.POST("/orders/:order_id/payments", h.Order.RecordPayment)
				operations.GET("/orders/:order_id/payments", h.Order.Payments)
				operations.POST("/orders/:order_id/upload_challan", h.Order.UploadChallan)
				operations.GET("/orders/:order_id/documents", h.Order.Documents)
				operations.GET("/orders/:order_id/documents/:document_id/download", h.Order.DownloadDocument)
				operations.GET("/orders/:order_id/approvals", h.Order.Approvals)
				operations.GET("/orders/:order_id/statement_pdf", h.Order.StatementPDF)
				operations.GET("/orders/:order_id/disputes", h.Dispute.ForOrder)

				operations.POST("/disputes", h.Dispute.Raise)
				operations.POST("/disputes/:dispute_id/resolve", h.Dispute.Resolve)

				operations.GET("/inventory/items", h.Inventory.Index)
				operations.POST("/inventory/items", h.Inventory.Create)
				operations.GET("/inventory/items/:item_id", h.Inventory.Show)
				operations.POST("/inventory/items/:item_id/pass_inspection", h.Inventory.PassInspection)
				operations.POST("/inventory/items/:item_id/mark_delivered", h.Inventory.MarkDelivered)

				operations.GET("/provisions", h.Inventory.IndexProvisions)
				operations.POST("/provisions", h.Inventory.CreateProvision)
				operations.GET("/provisions/:provision_id", h.Inventory.ShowProvision)
				operations.POST("/provisions/:provision_id/close", h.Inventory.CloseProvision)
			}

			// SLA and audit visibility for management roles
			oversight := protected.Group("")
			oversight.Use(middleware.RequireRole(
				models.RoleSalesHead, models.RoleBusinessHead,
				models.RoleFinanceController, models.RoleCEO, models.RoleInventoryManager,
			))
			{
				oversight.GET("/slas/export", h.SLA.Export)
				oversight.GET("/slas", h.SLA.Index)
				oversight.GET("/slas/:entity_kind/:entity_id", h.SLA.ForEntity)

				oversight.GET("/audits/export", h.Audit.Export)
				oversight.GET("/audits", h.Audit.Index)
				oversight.GET("/audits/:entity/:entity_id", h.Audit.Trail)

				oversight.GET("/users", h.User.Index)
				oversight.GET("/users/:user_id", h.User.Show)
			}

			// Notifications (users manage their own)
			// Static route first so "mark_all_as_read" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.POST("/mark_all_as_read", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/mark_as_read", h.Notification.MarkAsRead)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Sweep breached SLA trackers; the first run fires as soon as the worker is up
	interval := time.Duration(cfg.SLASweepIntervalMins) * time.Minute
	worker.ScheduleEveryImmediate(interval, func(ctx context.Context) error {
		result, err := svcs.SLA.Sweep(ctx, time.Now())
		if err != nil {
			return err
		}
		if result.Breached > 0 || result.Failed > 0 {
			logger.Info("[Job] SLA sweep finished", "checked", result.Checked, "breached", result.Breached, "failed", result.Failed)
		}
		return nil
	})
}
