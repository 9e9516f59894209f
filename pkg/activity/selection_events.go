package activity

import (
	"strings"
	"time"
)

const selectionObjectType = "selection"

// Verbs emitted by the configurator engine.
const (
	VerbProductLoaded    = "product.loaded"
	VerbSelectionUpdated = "selection.updated"
	VerbSelectionCleared = "selection.cleared"
	VerbSelectionReset   = "selection.reset"
)

// SelectionEventInput describes the common fields for selection lifecycle
// events emitted by a configurator engine.
type SelectionEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	SessionID  string
	Channel    string
	SKU        string
	Property   string
	Option     string
	Complete   *bool
	Recipients []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildProductLoadedEvent constructs the event for a descriptor swap.
func BuildProductLoadedEvent(input SelectionEventInput) Event {
	return buildSelectionEvent(VerbProductLoaded, input)
}

// BuildSelectionUpdatedEvent constructs the event for a property choice.
func BuildSelectionUpdatedEvent(input SelectionEventInput) Event {
	return buildSelectionEvent(VerbSelectionUpdated, input)
}

// BuildSelectionClearedEvent constructs the event for a cleared choice.
func BuildSelectionClearedEvent(input SelectionEventInput) Event {
	return buildSelectionEvent(VerbSelectionCleared, input)
}

// BuildSelectionResetEvent constructs the event for a full reset.
func BuildSelectionResetEvent(input SelectionEventInput) Event {
	return buildSelectionEvent(VerbSelectionReset, input)
}

func buildSelectionEvent(verb string, input SelectionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if sku := strings.TrimSpace(input.SKU); sku != "" {
		metadata = ensureMetadata(metadata)
		metadata["sku"] = sku
	}
	if property := strings.TrimSpace(input.Property); property != "" {
		metadata = ensureMetadata(metadata)
		metadata["property"] = property
	}
	if option := strings.TrimSpace(input.Option); option != "" {
		metadata = ensureMetadata(metadata)
		metadata["option"] = option
	}
	if input.Complete != nil {
		metadata = ensureMetadata(metadata)
		metadata["complete"] = *input.Complete
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.SessionID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.SKU)
	}
	if objectID == "" {
		objectID = selectionObjectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: selectionObjectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Recipients: recipients,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
