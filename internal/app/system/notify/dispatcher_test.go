package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeOutbox struct {
	err     error
	entries []models.OutboxEntry
}

func (f *fakeOutbox) Enqueue(_ context.Context, n models.Notification) (models.OutboxEntry, error) {
	if f.err != nil {
		return models.OutboxEntry{}, f.err
	}
	e := models.OutboxEntry{ID: "e-1", Notification: n, Status: models.OutboxPending}
	f.entries = append(f.entries, e)
	return e, nil
}

func TestPublish_Enqueues(t *testing.T) {
	outbox := &fakeOutbox{}
	d := New(outbox, zap.NewNop())

	d.Publish(context.Background(), models.Notification{Type: models.NotifyNewRequest, Audience: models.AudienceAdmins})

	if len(outbox.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(outbox.entries))
	}
	if outbox.entries[0].Notification.Type != models.NotifyNewRequest {
		t.Errorf("type = %q", outbox.entries[0].Notification.Type)
	}
}

func TestPublish_FailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := New(&fakeOutbox{err: errors.New("mongo down")}, zap.New(core))

	d.Publish(context.Background(), models.Notification{Type: models.NotifyDemandRejected, EntityID: "d-1"})

	entries := logs.FilterMessage("failed to enqueue notification").All()
	if len(entries) != 1 {
		t.Fatalf("warn logs = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["entity_id"]; got != "d-1" {
		t.Errorf("entity_id = %v", got)
	}
}

func TestPublish_NilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Publish(context.Background(), models.Notification{})
}
