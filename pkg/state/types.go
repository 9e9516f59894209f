package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrSnapshotNotFound = errors.New("state: snapshot not found")

var ErrSKUMismatch = errors.New("state: snapshot belongs to another product")

// Ref identifies one persisted selection: a session working on one product,
// optionally owned by a tenant.
type Ref struct {
	Tenant  string
	Session string
	SKU     string
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	session := strings.TrimSpace(r.Session)
	if session == "" {
		return "", fmt.Errorf("state: session is required")
	}
	sku := strings.TrimSpace(r.SKU)
	if sku == "" {
		return "", fmt.Errorf("state: sku is required")
	}
	key := fmt.Sprintf("session/%s/%s", session, sku)
	if tenant := strings.TrimSpace(r.Tenant); tenant != "" {
		key = fmt.Sprintf("tenant/%s/%s", tenant, key)
	}
	return key, nil
}

// Snapshot is the persisted form of a selection: the explicit choice per
// property slug. Auto-resolved properties are never stored.
type Snapshot struct {
	SKU        string            `json:"sku"`
	Selections map[string]string `json:"selections"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{SKU: s.SKU}
	if s.Selections != nil {
		out.Selections = make(map[string]string, len(s.Selections))
		for property, option := range s.Selections {
			out.Selections[property] = option
		}
	}
	return out
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot per Ref.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Mutator edits a snapshot in place.
type Mutator[T any] func(*T) error

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func checkETag(expected, loaded Meta) error {
	if expected.ETag != "" && loaded.ETag != "" && expected.ETag != loaded.ETag {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}
	return nil
}
