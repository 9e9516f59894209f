// Package openapi describes a product's selection form as an OpenAPI
// document: one string property per product property whose allowed values are
// the option slugs, with parametric options expressed as composite slug
// patterns carrying their dimension bounds.
package openapi

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	configurator "github.com/goliatone/go-configurator"
)

// Generator builds selection documents.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator from opts.
func NewGenerator(opts ...GeneratorOption) Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Generator{config: cfg}
}

// Generate describes every option of product. Pass a normalized descriptor,
// such as Engine.Product, so parametric options carry their constraints.
func (g Generator) Generate(product configurator.Product) (map[string]any, error) {
	return g.document(product, product.Properties, nil)
}

// GenerateAvailable describes only the options engine currently offers.
func (g Generator) GenerateAvailable(engine *configurator.Engine) (map[string]any, error) {
	if engine == nil {
		return nil, fmt.Errorf("openapi: engine cannot be nil")
	}
	var example map[string]any
	if g.config.example {
		example, _ = engine.Snapshot()["selected"].(map[string]any)
	}
	return g.document(engine.Product(), engine.AvailableOptions(), example)
}

func (g Generator) document(product configurator.Product, properties []configurator.Property, example map[string]any) (map[string]any, error) {
	name := g.config.componentName
	if name == "" {
		name = componentName(product.SKU)
	}
	schema := selectionSchema(product, properties)
	if len(example) > 0 {
		schema["example"] = example
	}
	builder := newOpenAPIDocumentBuilder(g.config, product.SKU, name, schema)
	return builder.build()
}

func selectionSchema(product configurator.Product, properties []configurator.Property) map[string]any {
	props := map[string]any{}
	required := []string{}
	for _, property := range properties {
		if len(property.Options) == 0 {
			continue
		}
		slug := string(property.Slug)
		props[slug] = propertySchema(property)
		if needsChoice(property.Options) {
			required = append(required, slug)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if title := strings.TrimSpace(product.TitleSingle); title != "" {
		schema["title"] = title
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func needsChoice(options []configurator.PropertyOption) bool {
	return len(options) > 1 || options[0].IsParametric()
}

func propertySchema(property configurator.Property) map[string]any {
	variants := make([]any, 0, len(property.Options))
	for _, option := range property.Options {
		variants = append(variants, optionSchema(option))
	}
	title := property.Title
	if title == "" {
		title = string(property.Slug)
	}
	schema := map[string]any{
		"type":  "string",
		"title": title,
		"oneOf": variants,
	}
	if property.Locked {
		schema["readOnly"] = true
	}
	return schema
}

func optionSchema(option configurator.PropertyOption) map[string]any {
	schema := map[string]any{
		"title": configurator.OptionName(option),
	}
	if option.Description != "" {
		schema["description"] = option.Description
	}
	if option.Kind != "" {
		schema["x-kind"] = string(option.Kind)
	}
	if !option.IsParametric() {
		schema["const"] = string(option.Slug)
		return schema
	}

	base := regexp.QuoteMeta(option.DisplayValue())
	schema["pattern"] = "^" + base + "(:[^:=]+=[^:]*)+$"
	dimensions := make([]any, 0, len(option.Constraint.Dimensions))
	for _, dimension := range option.Constraint.Dimensions {
		entry := map[string]any{"name": dimension.Name}
		if !math.IsInf(dimension.Min, 0) {
			entry["minimum"] = dimension.Min
		}
		if !math.IsInf(dimension.Max, 0) {
			entry["maximum"] = dimension.Max
		}
		dimensions = append(dimensions, entry)
	}
	schema["x-dimensions"] = dimensions
	if option.Constraint.Unit != "" {
		schema["x-unit"] = option.Constraint.Unit
	}
	return schema
}

func componentName(sku string) string {
	var b strings.Builder
	upper := true
	for _, r := range sku {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Selection"
	}
	return b.String() + "Selection"
}
