// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); everything the
// demand service itself needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: kara-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Redis backs the demand statistics cache. Blank RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	// Notification outbox delivery
	NotifyInterval    time.Duration // how often the delivery worker polls
	NotifyBatchSize   int           // max deliveries per poll
	NotifyMaxAttempts int           // failed attempts before an entry is dead

	// Conversion saga recovery
	ConversionRecoveryInterval time.Duration
	ConversionStaleAfter       time.Duration

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogDemands string

	// DefaultPageSize is the list page size when the request sets none.
	DefaultPageSize int
}
