// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	auditstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
	contractstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/contracts"
	notificationstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/notifications"
	settingsstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/settings"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/statscache"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/tasks"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/workers"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Startup fills in the background workers so Shutdown can stop them; WAFFLE
// passes the same value to every hook.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis *redis.Client

	app *appServices
}

// appServices holds what Startup builds, BuildHandler mounts and Shutdown
// tears down. ConnectDB allocates it so the value-typed DBDeps handed to
// each hook shares one instance.
type appServices struct {
	demands   demandsvc.Registry
	audit     *auditstore.Store
	contracts *contractstore.Store
	settings  *settingsstore.Store
	inbox     *notificationstore.Sink
	stats     *statscache.Cache // nil when Redis is not configured
	delivery  *workers.OutboxDelivery
	tasks     *tasks.Runner
}
