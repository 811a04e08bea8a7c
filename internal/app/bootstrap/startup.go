// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	auditstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
	contractstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/contracts"
	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	memberstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/members"
	notificationstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/notifications"
	settingsstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/settings"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auditlog"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/notify"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/statscache"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/tasks"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/timeouts"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/workers"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It builds one demand service per domain over the shared collaborator
// stores, then starts the outbox delivery worker and the periodic tasks
// (stale conversion recovery, dead-letter report).
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.app == nil {
		return errors.New("startup: DBDeps was not built by ConnectDB")
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	if appCfg.SessionName != "" {
		auth.SessionName = appCfg.SessionName
	}
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, coreCfg.Env == "prod", logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return err
	}

	db := deps.MongoDatabase
	outbox := notificationstore.NewOutbox(db)
	deps.app.inbox = notificationstore.NewSink(db)
	deps.app.settings = settingsstore.New(db)

	deps.app.demands = buildServices(deps, appCfg, outbox, logger)

	deps.app.delivery = workers.NewOutboxDelivery(outbox, deps.app.inbox, logger,
		appCfg.NotifyInterval, appCfg.NotifyMaxAttempts)
	deps.app.delivery.SetBatchSize(appCfg.NotifyBatchSize)
	deps.app.delivery.Start()

	recoverers := make([]tasks.StaleRecoverer, 0, len(models.Domains))
	for _, d := range models.Domains {
		recoverers = append(recoverers, deps.app.demands[d])
	}
	deps.app.tasks = tasks.NewRunner(logger,
		tasks.ConversionRecoveryJob(recoverers, logger, appCfg.ConversionRecoveryInterval),
		tasks.DeadLetterReportJob(outbox, logger),
	)
	deps.app.tasks.Start()

	return nil
}

// buildServices wires one demand service per domain. The collaborator
// stores are shared; only the demand repository is per domain.
func buildServices(deps DBDeps, appCfg AppConfig, outbox *notificationstore.Outbox, logger *zap.Logger) demandsvc.Registry {
	db := deps.MongoDatabase
	members := memberstore.New(db)
	deps.app.contracts = contractstore.New(db)

	deps.app.audit = auditstore.New(db)
	audit := auditlog.New(deps.app.audit, logger, auditlog.Config{
		Demands: appCfg.AuditLogDemands,
		System:  appCfg.AuditLogDemands,
	})

	// Leave Stats as a nil interface when Redis is off.
	var stats demandsvc.StatsCache
	if deps.Redis != nil {
		deps.app.stats = statscache.New(deps.Redis, appCfg.StatsCacheTTL, logger)
		stats = deps.app.stats
	}

	base := demandsvc.Deps{
		Members:   members,
		Admins:    members,
		Contracts: deps.app.contracts,
		Settings:  deps.app.settings,
		Publisher: notify.New(outbox, logger),
		Stats:     stats,
		Audit:     audit,
		Log:       logger,
	}
	opts := demandsvc.Options{ConversionStaleAfter: appCfg.ConversionStaleAfter}

	reg := make(demandsvc.Registry, len(models.Domains))
	for _, d := range models.Domains {
		svcDeps := base
		svcDeps.Repo = demandstore.New(db, d)
		reg[d] = demandsvc.New(svcDeps, opts)
	}
	return reg
}
