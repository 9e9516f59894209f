package configurator

import (
	"encoding/json"
	"math"
)

// SizeValue is one numeric dimension of a parametric choice. Values that are
// not numbers, or not finite, encode as null.
type SizeValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v SizeValue) MarshalJSON() ([]byte, error) {
	wire := struct {
		Name  string   `json:"name"`
		Value *float64 `json:"value"`
	}{Name: v.Name}
	if !math.IsNaN(v.Value) && !math.IsInf(v.Value, 0) {
		wire.Value = &v.Value
	}
	return json.Marshal(wire)
}

// OrderedOption is the option of an order line.
type OrderedOption struct {
	Slug        Slug        `json:"slug"`
	Nullable    bool        `json:"nullable"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        OptionKind  `json:"type,omitempty"`
	CustomSizes []SizeValue `json:"customSizes,omitempty"`
}

// OrderLine is one resolved property as submitted with an order.
type OrderLine struct {
	Slug   Slug          `json:"slug"`
	Title  string        `json:"title"`
	Locked bool          `json:"locked"`
	Option OrderedOption `json:"option"`
}

// OrderLines flattens ResolvedProperties into order lines. It returns false
// under the same conditions as ResolvedProperties.
func (e *Engine) OrderLines() ([]OrderLine, bool) {
	resolved, ok := e.ResolvedProperties()
	if !ok {
		return nil, false
	}
	lines := make([]OrderLine, 0, len(resolved))
	for _, property := range resolved {
		lines = append(lines, orderLine(property, property.Options[0]))
	}
	return lines, true
}

func orderLine(property Property, option PropertyOption) OrderLine {
	line := OrderLine{
		Slug:   property.Slug,
		Title:  property.label(),
		Locked: property.Locked,
		Option: OrderedOption{
			Slug:        option.Slug,
			Nullable:    option.Nullable,
			Name:        OptionName(option),
			Description: option.Description,
			Kind:        option.Kind,
		},
	}
	if IsComposite(option.Slug) {
		values := ParseComposite(option.Slug).Values
		line.Option.CustomSizes = make([]SizeValue, 0, len(values))
		for _, value := range values {
			line.Option.CustomSizes = append(line.Option.CustomSizes, SizeValue{
				Name:  value.Name,
				Value: parseNumber(value.Value),
			})
		}
	}
	return line
}
