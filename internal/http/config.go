package http

import (
	"github.com/CoreX20/library-app/internal/auth"
	"github.com/CoreX20/library-app/internal/config"
	"github.com/CoreX20/library-app/internal/database"
	"github.com/CoreX20/library-app/internal/reader"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces the long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database      *database.Database
	BookStore     BookStore
	ProgressStore ProgressStore
	AuditLogger   AuditLogger
	ReaderManager *reader.Manager

	// Authentication (nil when auth is disabled)
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Lending policy
	LoanPeriodDays int

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string
}
