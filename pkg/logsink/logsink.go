// Package logsink writes configurator evaluations and selection activity to
// zerolog.
package logsink

import (
	"context"
	"io"
	"os"
	"strings"

	configurator "github.com/goliatone/go-configurator"
	"github.com/goliatone/go-configurator/pkg/activity"
	"github.com/rs/zerolog"
)

// Config controls the logger built by New.
type Config struct {
	// Level is a zerolog level name. Unknown values fall back to info.
	Level string
	// Format is "json" (default) or "console".
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// New builds a component logger tagged with component=configurator.
func New(cfg Config) zerolog.Logger {
	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		writer = zerolog.ConsoleWriter{Out: writer, NoColor: true}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("component", "configurator").
		Logger()
}

// EvaluationLogger logs rule evaluations. Failures log at warn, successes at debug.
type EvaluationLogger struct {
	Logger zerolog.Logger
}

var _ configurator.EvaluatorLogger = EvaluationLogger{}

// LogEvaluation implements configurator.EvaluatorLogger.
func (l EvaluationLogger) LogEvaluation(event configurator.EvaluatorLogEvent) {
	entry := l.Logger.Debug()
	if event.Err != nil {
		entry = l.Logger.Warn().Err(event.Err)
	}
	entry.
		Str("engine", event.Engine).
		Str("expr", event.Expr).
		Str("sku", event.SKU).
		Dur("duration", event.Duration).
		Msg("rule evaluated")
}

// Hook writes selection activity at info level.
type Hook struct {
	Logger zerolog.Logger
}

var _ activity.ActivityHook = Hook{}

// Notify implements activity.ActivityHook.
func (h Hook) Notify(_ context.Context, event activity.Event) error {
	entry := h.Logger.Info().
		Str("verb", event.Verb).
		Str("object_type", event.ObjectType).
		Str("object_id", event.ObjectID).
		Str("channel", event.Channel).
		Time("occurred_at", event.OccurredAt)
	if event.TenantID != "" {
		entry = entry.Str("tenant_id", event.TenantID)
	}
	if event.ActorID != "" {
		entry = entry.Str("actor_id", event.ActorID)
	}
	if sku := event.SKU(); sku != "" {
		entry = entry.Str("sku", sku)
	}
	if property := event.Property(); property != "" {
		entry = entry.Str("property", property).Str("option", event.Option())
	}
	if complete, ok := event.Complete(); ok {
		entry = entry.Bool("complete", complete)
	}
	entry.Msg("selection activity")
	return nil
}

// ErrorHandler returns a handler for configurator.WithActivityErrorHandler
// that logs hook failures at error level.
func ErrorHandler(logger zerolog.Logger) func(error) {
	return func(err error) {
		if err == nil {
			return
		}
		logger.Error().Err(err).Msg("activity hook failed")
	}
}
