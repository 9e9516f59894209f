// Package reload keeps an engine in sync with a product descriptor on disk.
//
// A Reloader reads the descriptor file, replaces the engine's product and
// re-applies the choices the user had made so far. Watch repeats that on
// every write to the file, debounced.
package reload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-configurator/pkg/state"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Target is an engine that can load descriptors and be re-selected.
type Target interface {
	state.Selector
	LoadJSON(raw []byte) error
	LoadYAML(raw []byte) error
}

// Result describes one reload.
type Result struct {
	Path string
	// Skipped lists properties whose previous choice did not survive the
	// new descriptor.
	Skipped []string
	Err     error
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
func WithDebounce(delay time.Duration) Option {
	return func(r *Reloader) {
		if delay > 0 {
			r.debounce = delay
		}
	}
}

// WithOnReload registers a callback invoked after every reload triggered by
// Watch.
func WithOnReload(fn func(Result)) Option {
	return func(r *Reloader) {
		r.onReload = fn
	}
}

// Reloader loads one descriptor file into one engine.
type Reloader struct {
	path     string
	target   Target
	logger   zerolog.Logger
	debounce time.Duration
	onReload func(Result)

	mu sync.Mutex
}

// New builds a Reloader for the descriptor at path. Files ending in .yaml
// or .yml are decoded as YAML, everything else as JSON.
func New(path string, target Target, opts ...Option) (*Reloader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("reload: path is required")
	}
	if target == nil {
		return nil, fmt.Errorf("reload: target is required")
	}
	r := &Reloader{
		path:     filepath.Clean(path),
		target:   target,
		logger:   zerolog.Nop(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Path returns the watched descriptor path.
func (r *Reloader) Path() string {
	return r.path
}

// Load reads the descriptor and swaps it into the target. Choices made before
// the swap are re-applied. When the file cannot be read or decoded the target
// keeps its previous descriptor and selection.
func (r *Reloader) Load() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := Result{Path: r.path}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		result.Err = fmt.Errorf("reload: read %q: %w", r.path, err)
		return result
	}

	previous := state.Capture(r.target)
	if isYAML(r.path) {
		err = r.target.LoadYAML(raw)
	} else {
		err = r.target.LoadJSON(raw)
	}
	if err != nil {
		result.Err = fmt.Errorf("reload: load %q: %w", r.path, err)
		return result
	}

	result.Skipped, result.Err = state.Apply(r.target, previous)
	return result
}

// Watch starts watching the descriptor's directory in the background and
// reloads on every write or create of the descriptor. It stops when ctx is
// done.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reload: create watcher: %w", err)
	}
	// Editors often replace the file, so the directory is watched instead.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("reload: watch %q: %w", r.path, err)
	}

	go r.processEvents(ctx, watcher)

	r.logger.Info().
		Str("path", r.path).
		Dur("debounce", r.debounce).
		Msg("watching product descriptor")
	return nil
}

func (r *Reloader) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != r.path {
				continue
			}
			r.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("product descriptor changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(r.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				r.reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).Msg("descriptor watcher error")
		}
	}
}

func (r *Reloader) reload() {
	result := r.Load()
	if result.Err != nil {
		r.logger.Error().Err(result.Err).Str("path", r.path).Msg("failed to reload product descriptor")
	} else {
		r.logger.Info().
			Str("path", r.path).
			Strs("skipped", result.Skipped).
			Msg("reloaded product descriptor")
	}
	if r.onReload != nil {
		r.onReload(result)
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
