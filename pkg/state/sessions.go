package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	configurator "github.com/goliatone/go-configurator"
	"github.com/google/uuid"
)

// Selector is the part of a configurator engine that sessions persist.
type Selector interface {
	Product() configurator.Product
	Selections() map[configurator.Slug]configurator.PropertyOption
	SelectSlug(property, slug configurator.Slug) error
	ResetSelection()
}

var _ Selector = (*configurator.Engine)(nil)

// Sessions saves and restores engine selections through a Store.
type Sessions struct {
	Store Store[Snapshot]
	// Now defaults to time.Now.
	Now func() time.Time
}

// RestoreResult reports what Restore applied.
type RestoreResult struct {
	Meta Meta
	// Skipped lists properties whose stored choice no longer exists in the
	// descriptor.
	Skipped []string
}

// Capture builds a snapshot of the explicit choices held by selector.
func Capture(selector Selector) Snapshot {
	snapshot := Snapshot{
		SKU:        selector.Product().SKU,
		Selections: map[string]string{},
	}
	for property, option := range selector.Selections() {
		snapshot.Selections[string(property)] = string(option.Slug)
	}
	return snapshot
}

// Save persists the explicit choices of selector under ref. A non-empty
// meta.ETag must match the stored one. Every save gets a fresh snapshot ID
// and ETag.
func (s Sessions) Save(ctx context.Context, ref Ref, selector Selector, meta Meta) (Meta, error) {
	if s.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if selector == nil {
		return Meta{}, fmt.Errorf("state: selector is required")
	}
	snapshot := Capture(selector)
	if ref.SKU == "" {
		ref.SKU = snapshot.SKU
	}
	if ref.SKU != snapshot.SKU {
		return Meta{}, fmt.Errorf("%w: ref %q, engine %q", ErrSKUMismatch, ref.SKU, snapshot.SKU)
	}
	return s.write(ctx, ref, meta, func(current *Snapshot) error {
		*current = snapshot
		return nil
	})
}

// Mutate loads the snapshot under ref, applies fn and saves the result with
// the same concurrency rules as Save.
func (s Sessions) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[Snapshot]) (Snapshot, Meta, error) {
	if s.Store == nil {
		return Snapshot{}, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return Snapshot{}, Meta{}, fmt.Errorf("state: mutator is required")
	}
	var out Snapshot
	saved, err := s.write(ctx, ref, meta, func(current *Snapshot) error {
		if err := fn(current); err != nil {
			return err
		}
		out = current.clone()
		return nil
	})
	if err != nil {
		return Snapshot{}, saved, err
	}
	return out, saved, nil
}

func (s Sessions) write(ctx context.Context, ref Ref, meta Meta, apply func(*Snapshot) error) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	current, loaded, ok, err := s.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", key, err)
	}
	if !ok {
		current = Snapshot{SKU: ref.SKU}
		loaded = Meta{}
	}
	if err := checkETag(meta, loaded); err != nil {
		return loaded, err
	}

	current = current.clone()
	if err := apply(&current); err != nil {
		return loaded, err
	}
	if current.Selections == nil {
		current.Selections = map[string]string{}
	}

	next := mergeMeta(loaded, Meta{Extra: meta.Extra})
	next.SnapshotID = uuid.NewString()
	next.ETag = uuid.NewString()
	next.UpdatedAt = s.now()

	saved, err := s.Store.Save(ctx, ref, current, next)
	if err != nil {
		return loaded, fmt.Errorf("state: save %q: %w", key, err)
	}
	return saved, nil
}

// Restore replaces the selection of selector with the snapshot under ref.
// Choices whose property or option is gone from the descriptor are skipped.
func (s Sessions) Restore(ctx context.Context, ref Ref, selector Selector) (RestoreResult, error) {
	if s.Store == nil {
		return RestoreResult{}, fmt.Errorf("state: store is required")
	}
	if selector == nil {
		return RestoreResult{}, fmt.Errorf("state: selector is required")
	}
	product := selector.Product()
	if ref.SKU == "" {
		ref.SKU = product.SKU
	}
	key, err := ref.Identifier()
	if err != nil {
		return RestoreResult{}, err
	}

	snapshot, meta, ok, err := s.Store.Load(ctx, ref)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("state: load %q: %w", key, err)
	}
	if !ok {
		return RestoreResult{}, fmt.Errorf("%w: %q", ErrSnapshotNotFound, key)
	}
	if snapshot.SKU != "" && snapshot.SKU != product.SKU {
		return RestoreResult{}, fmt.Errorf("%w: snapshot %q, engine %q", ErrSKUMismatch, snapshot.SKU, product.SKU)
	}

	skipped, err := Apply(selector, snapshot)
	return RestoreResult{Meta: meta, Skipped: skipped}, err
}

// Apply resets selector and re-selects the choices in snapshot in descriptor
// order. It returns the properties whose choice no longer fits the
// descriptor: unknown options first, in descriptor order, then properties
// the descriptor no longer has, sorted.
func Apply(selector Selector, snapshot Snapshot) ([]string, error) {
	if selector == nil {
		return nil, fmt.Errorf("state: selector is required")
	}
	product := selector.Product()
	selector.ResetSelection()

	var skipped []string
	applied := map[string]struct{}{}
	for _, property := range product.Properties {
		option, ok := snapshot.Selections[string(property.Slug)]
		if !ok {
			continue
		}
		applied[string(property.Slug)] = struct{}{}
		err := selector.SelectSlug(property.Slug, configurator.Slug(option))
		switch {
		case err == nil:
		case errors.Is(err, configurator.ErrUnknownOption), errors.Is(err, configurator.ErrUnknownProperty):
			skipped = append(skipped, string(property.Slug))
		default:
			return skipped, err
		}
	}
	var orphaned []string
	for property := range snapshot.Selections {
		if _, ok := applied[property]; !ok {
			orphaned = append(orphaned, property)
		}
	}
	sort.Strings(orphaned)
	return append(skipped, orphaned...), nil
}

func (s Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
