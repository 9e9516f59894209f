package configurator

import (
	"strings"

	"github.com/goliatone/go-configurator/pkg/activity"
)

const defaultActivityChannel = activity.DefaultChannel

// WithActivityHooks attaches activity hooks notified on every mutation.
// Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *engineConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emission defaults. An empty channel keeps
// the "selection" channel.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *engineConfig) {
		if strings.TrimSpace(config.Channel) == "" {
			config.Channel = defaultActivityChannel
		}
		cfg.activityConfig = config
	}
}

// WithActivityErrorHandler receives hook failures. Mutations never fail
// because of a hook.
func WithActivityErrorHandler(handler func(error)) Option {
	return func(cfg *engineConfig) {
		cfg.activityErrors = handler
	}
}

// ActivityHooks returns a cloned slice of the configured hooks.
func (e *Engine) ActivityHooks() activity.Hooks {
	if e == nil {
		return nil
	}
	return cloneActivityHooks(e.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
