package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-configurator/pkg/activity"
	"github.com/goliatone/go-configurator/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsSelectionEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()
	sessionID := uuid.New().String()
	complete := true

	event := activity.BuildSelectionUpdatedEvent(activity.SelectionEventInput{
		ActorID:    actorID.String(),
		UserID:     userID.String(),
		TenantID:   tenantID.String(),
		SessionID:  sessionID,
		Channel:    "selection",
		SKU:        "posters",
		Property:   "color",
		Option:     "red",
		Complete:   &complete,
		Recipients: []string{"recipient@example.com"},
		OccurredAt: now,
	})
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.Verb != "selection.updated" || record.ObjectType != "selection" || record.ObjectID != sessionID {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "selection" {
		t.Fatalf("expected channel selection got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["session_id"] != sessionID {
		t.Fatalf("expected session_id metadata got %v", record.Data["session_id"])
	}
	if record.Data["property"] != "color" || record.Data["option"] != "red" || record.Data["complete"] != true {
		t.Fatalf("expected selection metadata passthrough got %v", record.Data)
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "recipient@example.com" {
		t.Fatalf("expected recipients metadata got %v", record.Data["recipients"])
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndTenant(t *testing.T) {
	sink := &recordingSink{}
	tenant := uuid.New()
	hook := usersink.Hook{Sink: sink, TenantID: tenant}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       "product.loaded",
		ObjectType: "selection",
		ObjectID:   "1",
		TenantID:   "not-a-uuid",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
	if sink.records[0].TenantID != tenant {
		t.Fatalf("expected fallback tenant %s got %s", tenant, sink.records[0].TenantID)
	}
}
