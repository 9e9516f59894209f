// Package state persists configurator selections.
//
// A Store[T] loads and saves one snapshot per Ref. Sessions sits on top of a
// Store[Snapshot] and moves explicit choices between an engine and storage:
//
//	engine -> Capture -> Sessions.Save -> Store
//	Store -> Sessions.Restore -> engine.SelectSlug
//
// Only explicit choices are stored. Auto-resolved properties are derived again
// after a restore, so a descriptor change never freezes a stale resolution.
//
// Concurrency:
//
//	Every save assigns a new Meta.ETag. Passing the last seen ETag to Save or
//	Mutate rejects the write with ErrETagMismatch when another writer got there
//	first.
//
// Deterministic keys:
//
//	Ref.Identifier returns `session/<session>/<sku>`, prefixed with
//	`tenant/<tenant>/` when the ref carries a tenant.
package state
