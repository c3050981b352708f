package config

// Default storage paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library-app.db"

	// DefaultReaderCachePath is the default path for the local reading-position cache
	DefaultReaderCachePath = "./reader-cache.db"
)
