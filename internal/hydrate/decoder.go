package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Context identifies the descriptor being decoded in errors and hooks.
type Context struct {
	Source string
	SKU    string
}

func (c Context) label() string {
	switch {
	case c.SKU != "" && c.Source != "":
		return fmt.Sprintf("%s (%s)", c.SKU, c.Source)
	case c.SKU != "":
		return c.SKU
	case c.Source != "":
		return c.Source
	default:
		return "<payload>"
	}
}

// PreHook lets callers rewrite the generic payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts descriptor payloads into typed values.
//
// Raw documents passed to DecodeJSON or DecodeYAML are decoded directly into
// T, so key order seen by custom unmarshalers survives. Pre-hooks and custom
// decoders need the generic map form and go through Decode instead.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return WithDecoderConfig[T](func(dec *json.Decoder) {
		dec.UseNumber()
	})
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T](func(dec *json.Decoder) {
		dec.DisallowUnknownFields()
	})
}

// WithDecoderConfig allows callers to configure the json.Decoder directly.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// NewDecoder constructs a decoder from opts.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T applying configured hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx.label())
	}

	current, err := clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for %s: %w", ctx.label(), err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		result, err = d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for %s failed: %w", ctx.label(), err)
		}
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx.label(), err)
		}
		if result, err = d.decodeJSON(ctx, buffer); err != nil {
			return zero, err
		}
	}

	return d.finish(ctx, result)
}

// DecodeJSON decodes a raw JSON document.
func (d *Decoder[T]) DecodeJSON(ctx Context, raw []byte) (T, error) {
	var zero T
	if d.needsPayload() {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return zero, fmt.Errorf("hydrate: parse json for %s: %w", ctx.label(), err)
		}
		return d.Decode(ctx, payload)
	}
	result, err := d.decodeJSON(ctx, raw)
	if err != nil {
		return zero, err
	}
	return d.finish(ctx, result)
}

// DecodeYAML decodes a raw YAML document. JSON decoder settings do not apply
// on the direct path.
func (d *Decoder[T]) DecodeYAML(ctx Context, raw []byte) (T, error) {
	var zero T
	if d.needsPayload() {
		var payload map[string]any
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return zero, fmt.Errorf("hydrate: parse yaml for %s: %w", ctx.label(), err)
		}
		return d.Decode(ctx, payload)
	}
	var result T
	if err := yaml.Unmarshal(raw, &result); err != nil {
		return zero, fmt.Errorf("hydrate: decode yaml for %s: %w", ctx.label(), err)
	}
	return d.finish(ctx, result)
}

func (d *Decoder[T]) needsPayload() bool {
	return len(d.preHooks) > 0 || d.custom != nil
}

func (d *Decoder[T]) decodeJSON(ctx Context, raw []byte) (T, error) {
	var result T
	decoder := json.NewDecoder(bytes.NewReader(raw))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(&result); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.label(), err)
	}
	return result, nil
}

func (d *Decoder[T]) finish(ctx Context, result T) (T, error) {
	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx.label(), err)
		}
	}
	return result, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
