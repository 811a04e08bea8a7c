// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Demands controls logging for demand lifecycle events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Demands string
	// System controls logging for background jobs acting on demands.
	System string
}

// Actor identifies who performed an action.
type Actor struct {
	ID   string
	Name string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.Domain != "" {
		fields = append(fields, zap.String("domain", event.Domain))
	}
	if event.DemandID != "" {
		fields = append(fields, zap.String("demand_id", event.DemandID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryDemand:
		setting = l.config.Demands
	case audit.CategorySystem:
		setting = l.config.System
	}
	if setting == "" {
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) demandEvent(ctx context.Context, eventType string, d models.Demand, actor Actor, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryDemand,
		EventType: eventType,
		Domain:    string(d.Domain),
		DemandID:  d.ID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Success:   true,
		Details:   details,
	})
}

// --- Demand Events ---

// DemandCreated logs the creation of a demand.
func (l *Logger) DemandCreated(ctx context.Context, d models.Demand, actor Actor) {
	l.demandEvent(ctx, audit.EventDemandCreated, d, actor, map[string]string{
		"member_id": d.MemberID,
	})
}

// DemandApproved logs an approval.
func (l *Logger) DemandApproved(ctx context.Context, d models.Demand, actor Actor) {
	l.demandEvent(ctx, audit.EventDemandApproved, d, actor, reasonDetails(d.DecisionReason))
}

// DemandRejected logs a rejection.
func (l *Logger) DemandRejected(ctx context.Context, d models.Demand, actor Actor) {
	l.demandEvent(ctx, audit.EventDemandRejected, d, actor, reasonDetails(d.DecisionReason))
}

// DemandReopened logs a rejected demand returned to pending.
func (l *Logger) DemandReopened(ctx context.Context, d models.Demand, actor Actor) {
	l.demandEvent(ctx, audit.EventDemandReopened, d, actor, reasonDetails(d.ReopenReason))
}

// DemandConverted logs the link between a demand and its new contract.
func (l *Logger) DemandConverted(ctx context.Context, d models.Demand, actor Actor, contractID string) {
	l.demandEvent(ctx, audit.EventDemandConverted, d, actor, map[string]string{
		"contract_id": contractID,
	})
}

// DemandConversionFailed logs a contract creation failure.
func (l *Logger) DemandConversionFailed(ctx context.Context, d models.Demand, actor Actor, cause error) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryDemand,
		EventType:     audit.EventDemandConversionFailed,
		Domain:        string(d.Domain),
		DemandID:      d.ID,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		Success:       false,
		FailureReason: cause.Error(),
	})
}

// DemandDeleted logs the removal of a demand.
func (l *Logger) DemandDeleted(ctx context.Context, d models.Demand, actor Actor) {
	l.demandEvent(ctx, audit.EventDemandDeleted, d, actor, map[string]string{
		"status": string(d.Status),
	})
}

// --- System Events ---

// ConversionRecovered logs a stale conversion finished by the recovery job.
func (l *Logger) ConversionRecovered(ctx context.Context, d models.Demand, contractID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySystem,
		EventType: audit.EventConversionRecovered,
		Domain:    string(d.Domain),
		DemandID:  d.ID,
		ActorID:   models.SystemActorID,
		Success:   true,
		Details:   map[string]string{"contract_id": contractID},
	})
}

func reasonDetails(reason string) map[string]string {
	if reason == "" {
		return nil
	}
	return map[string]string{"reason": reason}
}
