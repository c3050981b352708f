package http

import (
	"github.com/gin-gonic/gin"

	"github.com/CoreX20/library-app/internal/auth"
	"github.com/CoreX20/library-app/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// Apply CSRF protection if auth is enabled
	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Apply auth middleware if enabled
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - inject the single local user
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Serve static files
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// Register auth routes if auth service is available
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
		if err == nil {
			authController.RegisterRoutes(router)
		}
	}

	// Admin-only gate; a no-op when auth is disabled (single local user)
	adminOnly := func(c *gin.Context) { c.Next() }
	if cfg.AuthMiddleware != nil {
		adminOnly = cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin)
	}

	// Create controllers with appropriate interfaces
	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.BookStore, cfg.AuditLogger, cfg.LoanPeriodDays)
	readerController := NewReaderController(cfg.ReaderManager, cfg.BookStore, cfg.ProgressStore)
	auditController := NewAuditController(cfg.AuditLogger)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Catalog endpoints
	router.GET("/api/books", booksController.ListBooks)
	router.GET("/api/books/:id", booksController.GetBook)
	router.POST("/api/books", adminOnly, booksController.CreateBook)
	router.PUT("/api/books/:id", adminOnly, booksController.UpdateBook)
	router.DELETE("/api/books/:id", adminOnly, booksController.DeleteBook)

	// Borrowing endpoints
	router.POST("/api/books/:id/borrow", booksController.BorrowBook)
	router.POST("/api/borrows/:id/return", booksController.ReturnBook)
	router.GET("/api/borrows", booksController.ListBorrows)

	// Reader session endpoints
	router.POST("/api/reader/sessions", readerController.OpenSession)
	router.GET("/api/reader/sessions/:id", readerController.GetSession)
	router.POST("/api/reader/sessions/:id/position", readerController.UpdatePosition)
	router.DELETE("/api/reader/sessions/:id", readerController.CloseSession)

	// Reading progress endpoints
	router.GET("/api/books/:id/progress", readerController.GetProgress)
	router.DELETE("/api/books/:id/progress", readerController.DeleteProgress)

	// Audit trail
	router.GET("/api/admin/audit", adminOnly, auditController.ListEvents)

	return router
}
