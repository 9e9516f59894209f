package configurator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	minSizePrefix  = "min"
	maxSizePrefix  = "max"
	unitSizeSuffix = "Unit"
)

// Normalizer turns a raw product descriptor into the canonical shape used by
// the engine: kinds are expanded into generated parametric options and
// custom size maps are folded into constraints.
type Normalizer struct {
	registry *ConstraintRegistry
	validate *validator.Validate
}

// NewNormalizer constructs a normalizer. A nil registry uses
// NewConstraintRegistry, a nil validator uses validator.New.
func NewNormalizer(registry *ConstraintRegistry, validate *validator.Validate) *Normalizer {
	if registry == nil {
		registry = NewConstraintRegistry()
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Normalizer{registry: registry, validate: validate}
}

// Normalize returns a canonical copy of product. The input is not mutated.
// Normalizing an already canonical descriptor is a no-op.
func (n *Normalizer) Normalize(product Product) (Product, error) {
	if err := n.validate.Struct(product); err != nil {
		return Product{}, describeValidation(err)
	}

	out := product.clone()
	for i, property := range out.Properties {
		normalized, err := n.normalizeProperty(property)
		if err != nil {
			return Product{}, err
		}
		out.Properties[i] = normalized
	}
	return out, nil
}

func (n *Normalizer) normalizeProperty(property Property) (Property, error) {
	if kind := declaredKind(property); kind != "" {
		if !n.registry.Has(kind) {
			return Property{}, &UnregisteredKindError{Kind: kind, Property: property.Slug}
		}
		if hasGeneratedOption(property) {
			return property, nil
		}
		constraint, err := n.registry.Generate(kind, property)
		if err != nil {
			return Property{}, err
		}
		property.Options = append(property.Options, PropertyOption{
			Slug:       CustomOptionSlug,
			Nullable:   false,
			Constraint: &constraint,
			Generated:  true,
		})
		return property, nil
	}

	for i, option := range property.Options {
		if option.CustomSizes == nil {
			continue
		}
		constraint := foldCustomSizes(property.Slug, option.CustomSizes)
		property.Options[i].Constraint = &constraint
	}
	return property, nil
}

func declaredKind(property Property) OptionKind {
	for _, option := range property.Options {
		if option.Kind != "" && !option.Generated {
			return option.Kind
		}
	}
	return ""
}

func hasGeneratedOption(property Property) bool {
	for _, option := range property.Options {
		if option.Generated {
			return true
		}
	}
	return false
}

// foldCustomSizes merges min*/max* entries into per-dimension bounds keyed by
// the lower-cased remainder of the key. `<property>Unit` sets the unit label.
func foldCustomSizes(propertySlug Slug, sizes CustomSizes) Constraint {
	unitKey := string(propertySlug) + unitSizeSuffix
	constraint := Constraint{Dimensions: []Dimension{}}
	for _, entry := range sizes {
		switch {
		case entry.Key == unitKey:
			constraint.Unit = fmt.Sprint(entry.Value)
		case strings.HasPrefix(entry.Key, minSizePrefix), strings.HasPrefix(entry.Key, maxSizePrefix):
			name := strings.ToLower(entry.Key[len(minSizePrefix):])
			index := dimensionIndex(constraint.Dimensions, name)
			if index < 0 {
				constraint.Dimensions = append(constraint.Dimensions, Dimension{
					Name: name,
					Min:  DefaultMinValue,
					Max:  DefaultMaxValue,
				})
				index = len(constraint.Dimensions) - 1
			}
			value := sizeValue(entry.Value)
			if strings.HasPrefix(entry.Key, minSizePrefix) {
				constraint.Dimensions[index].Min = value
			} else {
				constraint.Dimensions[index].Max = value
			}
		}
	}
	return constraint
}

func dimensionIndex(dimensions []Dimension, name string) int {
	for i, d := range dimensions {
		if d.Name == name {
			return i
		}
	}
	return -1
}

func sizeValue(value any) float64 {
	if number, ok := toFloat(value); ok {
		return number
	}
	return parseNumber(fmt.Sprint(value))
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, strings.Join(parts, "; "))
}
