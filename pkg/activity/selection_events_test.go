package activity

import (
	"testing"
)

func TestBuildSelectionUpdatedEventIncludesSelectionMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	complete := false
	input := SelectionEventInput{
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		SessionID:  " session-1 ",
		SKU:        "posters",
		Property:   "size",
		Option:     "custom:width=100:height=200",
		Complete:   &complete,
		Metadata:   meta,
		Recipients: []string{"user@example.com"},
		Channel:    "selection",
	}

	event := BuildSelectionUpdatedEvent(input)

	if event.Verb != "selection.updated" {
		t.Fatalf("expected verb selection.updated got %s", event.Verb)
	}
	if event.ObjectType != "selection" || event.ObjectID != "session-1" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["property"] != "size" || event.Metadata["option"] != "custom:width=100:height=200" {
		t.Fatalf("expected selection metadata, got %+v", event.Metadata)
	}
	if event.Metadata["sku"] != "posters" || event.Metadata["complete"] != false {
		t.Fatalf("expected sku and completion metadata, got %+v", event.Metadata)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata preserved, got %+v", event.Metadata)
	}
	if _, ok := meta["property"]; ok {
		t.Fatalf("expected input metadata untouched, got %+v", meta)
	}
	event.Recipients[0] = "changed"
	if input.Recipients[0] != "user@example.com" {
		t.Fatalf("expected recipients cloned")
	}
}

func TestBuildSelectionEventObjectIDFallbacks(t *testing.T) {
	if got := BuildSelectionResetEvent(SelectionEventInput{SKU: "flyers"}).ObjectID; got != "flyers" {
		t.Fatalf("expected sku fallback, got %q", got)
	}
	if got := BuildProductLoadedEvent(SelectionEventInput{}).ObjectID; got != "selection" {
		t.Fatalf("expected object type fallback, got %q", got)
	}
	cleared := BuildSelectionClearedEvent(SelectionEventInput{SessionID: "s"})
	if cleared.Verb != "selection.cleared" || cleared.Metadata != nil {
		t.Fatalf("unexpected cleared event: %+v", cleared)
	}
}
