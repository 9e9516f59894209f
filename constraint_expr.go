package configurator

import (
	"fmt"
	"math"
	"strings"
)

// DimensionRule declares one generated dimension. Min and Max are
// expressions evaluated with `property` bound to the owning property; an
// empty expression falls back to DefaultMinValue / DefaultMaxValue. An empty
// Name uses the property slug.
type DimensionRule struct {
	Name string
	Min  string
	Max  string
}

// ExprGenerator builds a ConstraintGenerator from expression rules so new
// kinds can be registered without code. A nil evaluator uses expr.
func ExprGenerator(evaluator Evaluator, unit string, rules ...DimensionRule) ConstraintGenerator {
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	declared := append([]DimensionRule(nil), rules...)
	if len(declared) == 0 {
		declared = []DimensionRule{{}}
	}
	return func(property Property) (Constraint, error) {
		ctx := RuleContext{Snapshot: map[string]any{"property": propertyBinding(property)}}
		constraint := Constraint{Unit: unit, Dimensions: make([]Dimension, 0, len(declared))}
		for _, rule := range declared {
			name := strings.TrimSpace(rule.Name)
			if name == "" {
				name = string(property.Slug)
			}
			min, err := evaluateBound(evaluator, ctx, rule.Min, DefaultMinValue)
			if err != nil {
				return Constraint{}, fmt.Errorf("dimension %q min: %w", name, err)
			}
			max, err := evaluateBound(evaluator, ctx, rule.Max, DefaultMaxValue)
			if err != nil {
				return Constraint{}, fmt.Errorf("dimension %q max: %w", name, err)
			}
			constraint.Dimensions = append(constraint.Dimensions, Dimension{Name: name, Min: min, Max: max})
		}
		return constraint, nil
	}
}

func evaluateBound(evaluator Evaluator, ctx RuleContext, expression string, fallback float64) (float64, error) {
	if strings.TrimSpace(expression) == "" {
		return fallback, nil
	}
	value, err := evaluator.Evaluate(ctx, expression)
	if err != nil {
		return 0, err
	}
	number, ok := toFloat(value)
	if !ok {
		return 0, fmt.Errorf("expression %q returned %T, expected a number", expression, value)
	}
	return number, nil
}

func propertyBinding(property Property) map[string]any {
	options := make([]any, 0, len(property.Options))
	for _, option := range property.Options {
		options = append(options, map[string]any{
			"slug": string(option.Slug),
			"name": OptionName(option),
			"type": string(option.Kind),
		})
	}
	return map[string]any{
		"slug":    string(property.Slug),
		"title":   property.Title,
		"locked":  property.Locked,
		"options": options,
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f := parseNumber(v)
		return f, !math.IsNaN(f)
	default:
		return 0, false
	}
}
