package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is one selection occurrence: a descriptor load or a change to the
// choices of an engine session. IDs stay strings so hooks decide how to parse
// them.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Valid reports whether the event names a verb and an object.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.Verb) != "" &&
		strings.TrimSpace(e.ObjectType) != "" &&
		strings.TrimSpace(e.ObjectID) != ""
}

// SKU returns the product sku carried in the metadata.
func (e Event) SKU() string {
	return e.metadataString("sku")
}

// Property returns the property slug the event refers to, if any.
func (e Event) Property() string {
	return e.metadataString("property")
}

// Option returns the option slug the event refers to, if any.
func (e Event) Option() string {
	return e.metadataString("option")
}

// Complete returns the completion flag recorded with the event.
func (e Event) Complete() (complete bool, ok bool) {
	complete, ok = e.Metadata["complete"].(bool)
	return complete, ok
}

func (e Event) metadataString(key string) string {
	value, _ := e.Metadata[key].(string)
	return value
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event and hands it to every hook, including the ones
// after a failing or panicking hook. Failures are joined. Invalid events are
// dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := notifyHook(ctx, hook, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func notifyHook(ctx context.Context, hook ActivityHook, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activity: hook %T panicked on %s: %v", hook, event.Verb, r)
		}
	}()
	return hook.Notify(ctx, event)
}

// NormalizeEvent trims identifiers, copies metadata and recipients, and stamps
// a UTC timestamp when none is set.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	normalized.Recipients = nil
	for _, recipient := range event.Recipients {
		if trimmed := strings.TrimSpace(recipient); trimmed != "" {
			normalized.Recipients = append(normalized.Recipients, trimmed)
		}
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	normalized.OccurredAt = normalized.OccurredAt.UTC()
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
