package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

type (
	Config struct {
		HTTP
		Global
		Database
		Assets
		Reader
		Borrowing
		UI
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Assets configures the remote asset host that serves book files.
	Assets struct {
		Endpoint   string // API endpoint of the asset host
		PublicKey  string
		PrivateKey string
		URLTTL     time.Duration // lifetime of signed download URLs
		Timeout    time.Duration // per-request timeout; expiry counts as an upstream failure
	}

	Reader struct {
		FlushInterval time.Duration // debounce window for progress flushes
		SessionTTL    time.Duration // idle reader sessions past this are reaped
		CachePath     string        // bolt file for the local position cache; empty = in-memory
	}

	Borrowing struct {
		LoanPeriodDays int
		SweepSchedule  string // cron format for the overdue/idle-session sweeps
	}

	UI struct {
		TemplatesPath string
		StaticPath    string
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Asset host defaults
	v.SetDefault("assets_endpoint", "https://api.imagekit.io/v1")
	v.SetDefault("assets_public_key", "")
	v.SetDefault("assets_private_key", "")
	v.SetDefault("assets_url_ttl", "1h")
	v.SetDefault("assets_timeout", "10s")

	// Reader defaults
	v.SetDefault("reader_flush_interval", "30s")
	v.SetDefault("reader_session_ttl", "2h")
	v.SetDefault("reader_cache_path", DefaultReaderCachePath)

	// Borrowing defaults
	v.SetDefault("borrow_loan_period_days", 7)
	v.SetDefault("borrow_sweep_schedule", "0 * * * *") // Hourly at :00

	// UI defaults
	v.SetDefault("templates_path", "web/templates")
	v.SetDefault("static_path", "web/static")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Assets: Assets{
			Endpoint:   v.GetString("ASSETS_ENDPOINT"),
			PublicKey:  v.GetString("ASSETS_PUBLIC_KEY"),
			PrivateKey: v.GetString("ASSETS_PRIVATE_KEY"),
			URLTTL:     v.GetDuration("ASSETS_URL_TTL"),
			Timeout:    v.GetDuration("ASSETS_TIMEOUT"),
		},
		Reader: Reader{
			FlushInterval: v.GetDuration("READER_FLUSH_INTERVAL"),
			SessionTTL:    v.GetDuration("READER_SESSION_TTL"),
			CachePath:     v.GetString("READER_CACHE_PATH"),
		},
		Borrowing: Borrowing{
			LoanPeriodDays: v.GetInt("BORROW_LOAN_PERIOD_DAYS"),
			SweepSchedule:  v.GetString("BORROW_SWEEP_SCHEDULE"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}
