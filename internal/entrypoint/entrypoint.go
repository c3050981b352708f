package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CoreX20/library-app/internal/assets"
	"github.com/CoreX20/library-app/internal/auth"
	"github.com/CoreX20/library-app/internal/config"
	"github.com/CoreX20/library-app/internal/database"
	"github.com/CoreX20/library-app/internal/database/audit"
	"github.com/CoreX20/library-app/internal/database/books"
	"github.com/CoreX20/library-app/internal/database/progress"
	http_controllers "github.com/CoreX20/library-app/internal/http"
	"github.com/CoreX20/library-app/internal/reader"
	"github.com/CoreX20/library-app/internal/reader/render"
	"github.com/CoreX20/library-app/internal/scheduler"
	"github.com/CoreX20/library-app/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the task queue and
	// close reader sessions) so pending work drains before the listener
	// goes away.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting library server v%s", version)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bookRepo := books.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)
	auditRepo := audit.NewRepository(db.DB)

	// Remote asset host serving the actual book files
	assetClient := assets.NewClient(cfg.Assets)

	// Local position cache: bolt-backed when a path is configured so
	// unflushed positions survive restarts, in-memory otherwise.
	var positionCache reader.LocalCache
	if cfg.Reader.CachePath != "" {
		boltCache, err := reader.NewBoltCache(cfg.Reader.CachePath)
		if err != nil {
			log.Printf("WARNING: position cache at %s unavailable (%v), falling back to in-memory", cfg.Reader.CachePath, err)
			positionCache = reader.NewMemoryCache()
		} else {
			positionCache = boltCache
			defer boltCache.Close()
		}
	} else {
		positionCache = reader.NewMemoryCache()
	}

	// Reader session manager
	sessionManager := reader.NewManager(reader.SessionConfig{
		Assets: assetClient,
		Store:  progressRepo,
		Cache:  positionCache,
		Renderers: map[reader.Format]render.Renderer{
			reader.FormatEPUB: render.NewEpubRenderer(),
			reader.FormatPDF:  render.NewPdfRenderer(),
		},
		FlushInterval: cfg.Reader.FlushInterval,
	})

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var sweeper *scheduler.Sweeper
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewMarkOverdueQueue(bookRepo, auditRepo),
			tasks.NewReapReaderSessionsQueue(sessionManager),
			tasks.NewCleanupAuditEventsQueue(auditRepo),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		// Cron schedule feeding the queues
		sweeper = scheduler.NewSweeper(taskClient, cfg.Borrowing.SweepSchedule, cfg.Reader.SessionTTL)
		if err := sweeper.Start(); err != nil {
			log.Fatalf("Failed to start sweep scheduler: %v", err)
		}
	}

	// Initialize authentication if enabled
	var authService *auth.Service
	var authMiddleware *auth.Middleware
	var authSessions *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		authService = auth.NewService(db.DB, cfg.Auth)

		// Get underlying SQL DB for session store
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}

		authSessions, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		authMiddleware = auth.NewMiddleware(authService, authSessions, cfg.Auth)

		// Generate or use configured CSRF secret
		if cfg.Auth.SessionSecret != "" {
			csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
			if err != nil {
				// Not hex, use as raw bytes
				csrfSecret = []byte(cfg.Auth.SessionSecret)
			}
		} else {
			secret, err := auth.GenerateSessionSecret()
			if err != nil {
				log.Fatalf("Failed to generate CSRF secret: %v", err)
			}
			csrfSecret, _ = hex.DecodeString(secret)
			log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}

		hasUsers, _ := authService.HasUsers()
		if !hasUsers {
			log.Printf("No users found. Visit /setup to create an administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		BookStore:      bookRepo,
		ProgressStore:  progressRepo,
		AuditLogger:    auditRepo,
		ReaderManager:  sessionManager,
		AuthService:    authService,
		SessionManager: authSessions,
		AuthMiddleware: authMiddleware,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		LoanPeriodDays: cfg.Borrowing.LoanPeriodDays,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup. Reader sessions close
	// first so their debounced flushes are cancelled deterministically,
	// then the scheduler and queue drain.
	onShutdown := func(ctx context.Context) {
		sessionManager.Shutdown()
		if sweeper != nil {
			sweeper.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
