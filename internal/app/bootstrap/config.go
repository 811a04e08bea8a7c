// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/statscache"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the demand service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_addr, etc.
//   - Environment variables: KARA_MONGO_URI, KARA_REDIS_ADDR, etc.
//   - Command-line flags: --mongo_uri, --redis_addr, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "kara", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "kara-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Stats cache
	{Name: "redis_addr", Default: "", Desc: "Redis address for the stats cache (blank disables caching)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis logical database"},
	{Name: "stats_cache_ttl", Default: "30s", Desc: "How long cached demand statistics live"},

	// Notifications
	{Name: "notify_interval", Default: "5s", Desc: "Outbox delivery poll interval"},
	{Name: "notify_batch_size", Default: workers.DefaultBatchSize, Desc: "Max notifications delivered per poll"},
	{Name: "notify_max_attempts", Default: 8, Desc: "Delivery attempts before a notification is dead-lettered"},

	// Conversion recovery
	{Name: "conversion_recovery_interval", Default: "1m", Desc: "How often stale conversions are retried"},
	{Name: "conversion_stale_after", Default: "5m", Desc: "Age after which an unfinished conversion is considered stale"},

	// Audit logging
	{Name: "audit_log_demands", Default: "all", Desc: "Demand event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Listing
	{Name: "default_page_size", Default: paging.PageSize, Desc: "Demands per page when the request sets no limit"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, KARA_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "KARA", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		// Stats cache
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		StatsCacheTTL: appValues.Duration("stats_cache_ttl", statscache.DefaultTTL),

		// Notifications
		NotifyInterval:    appValues.Duration("notify_interval", 5*time.Second),
		NotifyBatchSize:   appValues.Int("notify_batch_size"),
		NotifyMaxAttempts: appValues.Int("notify_max_attempts"),

		// Conversion recovery
		ConversionRecoveryInterval: appValues.Duration("conversion_recovery_interval", time.Minute),
		ConversionStaleAfter:       appValues.Duration("conversion_stale_after", 5*time.Minute),

		AuditLogDemands: appValues.String("audit_log_demands"),
		DefaultPageSize: appValues.Int("default_page_size"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked here to catch configuration errors
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(appCfg)
}

// validateAppConfig checks the settings that do not need a logger.
func validateAppConfig(appCfg AppConfig) error {
	durations := []struct {
		name string
		v    time.Duration
	}{
		{"notify_interval", appCfg.NotifyInterval},
		{"conversion_recovery_interval", appCfg.ConversionRecoveryInterval},
		{"conversion_stale_after", appCfg.ConversionStaleAfter},
	}
	for _, d := range durations {
		if d.v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.v)
		}
	}

	if appCfg.RedisAddr != "" && appCfg.StatsCacheTTL <= 0 {
		return fmt.Errorf("stats_cache_ttl must be positive when redis_addr is set, got %s", appCfg.StatsCacheTTL)
	}
	if appCfg.NotifyBatchSize < 1 {
		return fmt.Errorf("notify_batch_size must be at least 1, got %d", appCfg.NotifyBatchSize)
	}
	if appCfg.NotifyMaxAttempts < 1 {
		return fmt.Errorf("notify_max_attempts must be at least 1, got %d", appCfg.NotifyMaxAttempts)
	}
	if appCfg.DefaultPageSize < 1 || appCfg.DefaultPageSize > paging.MaxPageSize {
		return fmt.Errorf("default_page_size must be between 1 and %d, got %d", paging.MaxPageSize, appCfg.DefaultPageSize)
	}

	switch appCfg.AuditLogDemands {
	case "all", "db", "log", "off":
	default:
		return fmt.Errorf("audit_log_demands must be one of all, db, log, off; got %q", appCfg.AuditLogDemands)
	}
	return nil
}
