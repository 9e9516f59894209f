package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	recipients := []string{" a ", "b "}
	evt := Event{
		Verb:       " selection.reset ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " selection ",
		ObjectID:   " 42 ",
		Channel:    " selection ",
		Recipients: recipients,
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "selection.reset" || got.ObjectType != "selection" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "selection" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	if got.Metadata["k"] != "v" {
		t.Fatalf("expected metadata value preserved: %+v", got.Metadata)
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
	if len(got.Recipients) != 2 || got.Recipients[0] != "a" || got.Recipients[1] != "b" {
		t.Fatalf("expected trimmed recipients, got %+v", got.Recipients)
	}
	got.Recipients[0] = "changed"
	if recipients[0] != " a " {
		t.Fatalf("expected original recipients untouched: %+v", recipients)
	}
	if got.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", got.OccurredAt.Location())
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	hooks := Hooks{&CaptureHook{}}
	err := hooks.Notify(context.Background(), Event{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	capture := hooks[0].(*CaptureHook)
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	errFirst := errors.New("boom1")
	errSecond := errors.New("boom2")
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return errFirst }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return errSecond }),
	}

	err := hooks.Notify(nil, Event{Verb: "selection.updated", ObjectType: "selection", ObjectID: "1"})
	if err == nil || !errors.Is(err, errFirst) || !errors.Is(err, errSecond) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: "product.loaded", ObjectType: "selection", ObjectID: "1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: ""})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), Event{Verb: "product.loaded", ObjectType: "selection", ObjectID: "1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != "selection" {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})

	err := emitter.Emit(context.Background(), Event{
		Verb:       "product.loaded",
		ObjectType: "selection",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].OccurredAt != (time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}

func TestEmitterStampsDefaultTenant(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, TenantID: " tenant-a "})

	_ = emitter.Emit(context.Background(), BuildSelectionResetEvent(SelectionEventInput{SessionID: "s1"}))
	_ = emitter.Emit(context.Background(), BuildSelectionClearedEvent(SelectionEventInput{SessionID: "s1", TenantID: "tenant-b"}))

	if got := capture.Verbs(); len(got) != 2 || got[0] != VerbSelectionReset || got[1] != VerbSelectionCleared {
		t.Fatalf("unexpected verbs: %v", got)
	}
	if capture.Events[0].TenantID != "tenant-a" {
		t.Fatalf("expected default tenant, got %q", capture.Events[0].TenantID)
	}
	last, ok := capture.Last()
	if !ok || last.TenantID != "tenant-b" {
		t.Fatalf("expected explicit tenant preserved, got %+v", last)
	}
	if emitter.Channel() != DefaultChannel {
		t.Fatalf("expected default channel, got %q", emitter.Channel())
	}

	capture.Reset()
	if _, ok := capture.Last(); ok {
		t.Fatalf("expected capture to be empty after reset")
	}
}

func TestHooksNotifyRecoversPanickingHook(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{
		HookFunc(func(context.Context, Event) error { panic("sink exploded") }),
		capture,
	}

	err := hooks.Notify(context.Background(), BuildSelectionResetEvent(SelectionEventInput{SessionID: "s-1"}))
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("hooks after a panicking hook should still run")
	}
}

func TestEventSelectionAccessors(t *testing.T) {
	complete := true
	event := BuildSelectionUpdatedEvent(SelectionEventInput{
		SessionID: "s-1",
		SKU:       "posters",
		Property:  "color",
		Option:    "red",
		Complete:  &complete,
	})

	if event.SKU() != "posters" || event.Property() != "color" || event.Option() != "red" {
		t.Fatalf("unexpected accessors: %q %q %q", event.SKU(), event.Property(), event.Option())
	}
	if got, ok := event.Complete(); !ok || !got {
		t.Fatalf("expected complete=true, got %v (ok=%v)", got, ok)
	}
	if _, ok := (Event{}).Complete(); ok {
		t.Fatalf("empty event should carry no completion flag")
	}
	if (Event{Verb: "x", ObjectType: "selection"}).Valid() {
		t.Fatalf("event without object id should be invalid")
	}
}
