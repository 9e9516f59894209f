package configurator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-configurator/pkg/activity"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Slug identifies a property or an option. Descriptors may carry slugs as
// strings or numbers; numbers decode to their literal decimal text so both
// forms name the same identifier.
type Slug string

func (s Slug) String() string {
	return string(s)
}

// UnmarshalJSON accepts string and number literals.
func (s *Slug) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = Slug(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("configurator: slug must be a string or number: %w", err)
	}
	*s = Slug(number.String())
	return nil
}

// UnmarshalYAML accepts any scalar node.
func (s *Slug) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("configurator: slug must be a scalar at line %d", node.Line)
	}
	if node.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = Slug(node.Value)
	return nil
}

// OptionKind tags an option with the constraint generator that produces its
// parametric counterpart.
type OptionKind string

// Dimension bounds a single named numeric sub-value of a composite option.
// Infinite bounds mean the side is unbounded.
type Dimension struct {
	Name string
	Min  float64
	Max  float64
}

type dimensionWire struct {
	Name string   `json:"name" yaml:"name"`
	Min  *float64 `json:"min" yaml:"min"`
	Max  *float64 `json:"max" yaml:"max"`
}

// MarshalJSON encodes infinite bounds as null.
func (d Dimension) MarshalJSON() ([]byte, error) {
	wire := dimensionWire{Name: d.Name}
	if !math.IsInf(d.Min, 0) {
		wire.Min = &d.Min
	}
	if !math.IsInf(d.Max, 0) {
		wire.Max = &d.Max
	}
	return json.Marshal(wire)
}

// UnmarshalJSON treats missing or null bounds as unbounded.
func (d *Dimension) UnmarshalJSON(data []byte) error {
	var wire dimensionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*d = wire.dimension()
	return nil
}

// UnmarshalYAML treats missing or null bounds as unbounded.
func (d *Dimension) UnmarshalYAML(node *yaml.Node) error {
	var wire dimensionWire
	if err := node.Decode(&wire); err != nil {
		return err
	}
	*d = wire.dimension()
	return nil
}

func (w dimensionWire) dimension() Dimension {
	d := Dimension{Name: w.Name, Min: math.Inf(-1), Max: math.Inf(1)}
	if w.Min != nil {
		d.Min = *w.Min
	}
	if w.Max != nil {
		d.Max = *w.Max
	}
	return d
}

// Contains reports whether the supplied value lies inside the bounds. Absent
// values never satisfy a dimension.
func (d Dimension) Contains(value DimensionValue) bool {
	if !value.HasValue {
		return false
	}
	v := parseNumber(value.Value)
	return d.Min <= v && v <= d.Max
}

func (d Dimension) describe() string {
	return fmt.Sprintf("%s from %s to %s", d.Name, formatNumber(d.Min), formatNumber(d.Max))
}

// Constraint is the resolved descriptor of a parametric option.
type Constraint struct {
	Unit       string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Dimensions []Dimension `json:"dimensions" yaml:"dimensions"`
}

// Dimension returns the bounds registered for name.
func (c Constraint) Dimension(name string) (Dimension, bool) {
	for _, d := range c.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// Describe renders every dimension as "<dim> from <min> to <max>".
func (c Constraint) Describe() string {
	parts := make([]string, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		parts = append(parts, d.describe())
	}
	return strings.Join(parts, ", ")
}

func (c *Constraint) clone() *Constraint {
	if c == nil {
		return nil
	}
	out := &Constraint{Unit: c.Unit}
	if c.Dimensions != nil {
		out.Dimensions = append([]Dimension(nil), c.Dimensions...)
	}
	return out
}

// SizeEntry is one key of a raw "custom sizes" map.
type SizeEntry struct {
	Key   string
	Value any
}

// CustomSizes is the flat, pre-normalization custom size metadata of an
// option (minWidth, maxWidth, posterUnit...). Document order is preserved.
type CustomSizes []SizeEntry

// UnmarshalJSON decodes an object keeping key order. Numbers decode to
// float64, everything else to its JSON value.
func (c *CustomSizes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("configurator: custom sizes must be an object")
	}
	entries := CustomSizes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if number, ok := value.(json.Number); ok {
			f, err := number.Float64()
			if err != nil {
				return fmt.Errorf("configurator: custom size %q: %w", key, err)
			}
			value = f
		}
		entries = append(entries, SizeEntry{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = entries
	return nil
}

// MarshalJSON encodes the entries as an object in their stored order.
func (c CustomSizes) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a mapping keeping key order.
func (c *CustomSizes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("configurator: custom sizes must be a mapping at line %d", node.Line)
	}
	entries := make(CustomSizes, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		entry := SizeEntry{Key: key.Value, Value: value.Value}
		if value.Tag == "!!int" || value.Tag == "!!float" {
			var f float64
			if err := value.Decode(&f); err != nil {
				return fmt.Errorf("configurator: custom size %q: %w", key.Value, err)
			}
			entry.Value = f
		}
		entries = append(entries, entry)
	}
	*c = entries
	return nil
}

// PropertyOption is one choice within a property. It is parametric when it
// carries a Constraint.
type PropertyOption struct {
	Slug        Slug        `json:"slug" yaml:"slug" validate:"required"`
	Nullable    bool        `json:"nullable" yaml:"nullable"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        OptionKind  `json:"type,omitempty" yaml:"type,omitempty"`
	CustomSizes CustomSizes `json:"customSizes,omitempty" yaml:"customSizes,omitempty"`
	Constraint  *Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Generated   bool        `json:"generated,omitempty" yaml:"generated,omitempty"`
}

// IsParametric reports whether the option expects user-entered sub-values.
func (o PropertyOption) IsParametric() bool {
	return o.Constraint != nil
}

// DisplayValue is the composite base name for composite slugs, else the slug.
func (o PropertyOption) DisplayValue() string {
	if IsComposite(o.Slug) {
		return ParseComposite(o.Slug).Base
	}
	return string(o.Slug)
}

func (o PropertyOption) clone() PropertyOption {
	out := o
	out.Constraint = o.Constraint.clone()
	if o.CustomSizes != nil {
		out.CustomSizes = append(CustomSizes(nil), o.CustomSizes...)
	}
	return out
}

// Property is one independently-selectable facet of a product.
type Property struct {
	Slug    Slug             `json:"slug" yaml:"slug" validate:"required"`
	Title   string           `json:"title" yaml:"title"`
	Locked  bool             `json:"locked" yaml:"locked"`
	Options []PropertyOption `json:"options" yaml:"options" validate:"dive"`
}

// Option returns the option stored under slug.
func (p Property) Option(slug Slug) (PropertyOption, bool) {
	for _, option := range p.Options {
		if option.Slug == slug {
			return option, true
		}
	}
	return PropertyOption{}, false
}

func (p Property) label() string {
	if p.Title != "" {
		return p.Title
	}
	return string(p.Slug)
}

func (p Property) clone() Property {
	out := p
	if p.Options != nil {
		out.Options = make([]PropertyOption, len(p.Options))
		for i, option := range p.Options {
			out.Options[i] = option.clone()
		}
	}
	return out
}

// ExcludeRule ties a property to the option slugs or range expressions that
// take part in an exclude group.
type ExcludeRule struct {
	Property Slug   `json:"property" yaml:"property" validate:"required"`
	Options  []Slug `json:"options" yaml:"options"`
}

// ExcludeGroup is a set of rules evaluated jointly.
type ExcludeGroup []ExcludeRule

// Product is the descriptor the engine operates on.
type Product struct {
	SKU         string         `json:"sku,omitempty" yaml:"sku,omitempty"`
	Active      bool           `json:"active,omitempty" yaml:"active,omitempty"`
	TitleSingle string         `json:"titleSingle,omitempty" yaml:"titleSingle,omitempty"`
	TitlePlural string         `json:"titlePlural,omitempty" yaml:"titlePlural,omitempty"`
	MaxDesigns  int            `json:"maxDesigns,omitempty" yaml:"maxDesigns,omitempty"`
	Bleed       float64        `json:"bleed,omitempty" yaml:"bleed,omitempty"`
	Properties  []Property     `json:"properties" yaml:"properties" validate:"unique=Slug,dive"`
	Excludes    []ExcludeGroup `json:"excludes,omitempty" yaml:"excludes,omitempty" validate:"dive,dive"`
}

// Property returns the property stored under slug.
func (p Product) Property(slug Slug) (Property, bool) {
	for _, property := range p.Properties {
		if property.Slug == slug {
			return property, true
		}
	}
	return Property{}, false
}

func (p Product) clone() Product {
	out := p
	if p.Properties != nil {
		out.Properties = make([]Property, len(p.Properties))
		for i, property := range p.Properties {
			out.Properties[i] = property.clone()
		}
	}
	if p.Excludes != nil {
		out.Excludes = make([]ExcludeGroup, len(p.Excludes))
		for i, group := range p.Excludes {
			rules := make(ExcludeGroup, len(group))
			for j, rule := range group {
				rules[j] = ExcludeRule{Property: rule.Property, Options: append([]Slug(nil), rule.Options...)}
			}
			out.Excludes[i] = rules
		}
	}
	return out
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	registry       *ConstraintRegistry
	validate       *validator.Validate
	evaluator      Evaluator
	programCache   ProgramCache
	functions      *FunctionRegistry
	logger         EvaluatorLogger
	activityHooks  activity.Hooks
	activityConfig activity.Config
	activityErrors func(error)
	sessionID      string
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{
		activityConfig: activity.Config{Enabled: true, Channel: defaultActivityChannel},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithRegistry configures the constraint registry used during normalization.
func WithRegistry(registry *ConstraintRegistry) Option {
	return func(cfg *engineConfig) {
		cfg.registry = registry
	}
}

// WithValidator replaces the descriptor validator.
func WithValidator(validate *validator.Validate) Option {
	return func(cfg *engineConfig) {
		cfg.validate = validate
	}
}

// WithEvaluator configures the evaluator used by Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.evaluator = e
	}
}

// WithSessionID pins the identifier reported in activity events. A random
// UUID is used otherwise.
func WithSessionID(id string) Option {
	return func(cfg *engineConfig) {
		cfg.sessionID = strings.TrimSpace(id)
	}
}

var (
	decimalLiteral  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	prefixedLiteral = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// parseNumber reads a dimension value. Surrounding whitespace is ignored and
// the empty string is 0. Only decimal literals, 0x/0o/0b integers and signed
// Infinity are numbers; anything else, including Go spellings such as "inf"
// or "1_000", is NaN.
func parseNumber(value string) float64 {
	trimmed := strings.TrimSpace(value)
	switch trimmed {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if prefixedLiteral.MatchString(trimmed) {
		base := 2
		switch trimmed[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		}
		n, err := strconv.ParseUint(trimmed[2:], base, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	if !decimalLiteral.MatchString(trimmed) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func formatNumber(value float64) string {
	switch {
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}
