package configurator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

const (
	// KindDigital marks properties that accept a user-entered count.
	KindDigital OptionKind = "digital"

	// CustomOptionSlug is the slug of options generated from a kind.
	CustomOptionSlug Slug = "custom"

	// DefaultMinValue is the lower bound assumed for custom dimensions.
	DefaultMinValue = 1.0
)

// DefaultMaxValue is the upper bound assumed for custom dimensions.
var DefaultMaxValue = math.Inf(1)

// ConstraintGenerator produces the constraint of the parametric option
// generated for property.
type ConstraintGenerator func(property Property) (Constraint, error)

// ConstraintRegistry maps option kinds to constraint generators.
type ConstraintRegistry struct {
	mu         sync.RWMutex
	generators map[OptionKind]ConstraintGenerator
}

// NewConstraintRegistry constructs a registry with the digital generator
// pre-registered.
func NewConstraintRegistry() *ConstraintRegistry {
	r := &ConstraintRegistry{
		generators: make(map[OptionKind]ConstraintGenerator),
	}
	r.generators[KindDigital] = DigitalGenerator
	return r
}

// Register stores generator under kind, replacing any previous generator.
func (r *ConstraintRegistry) Register(kind OptionKind, generator ConstraintGenerator) error {
	if generator == nil {
		return fmt.Errorf("%w: kind %q", ErrNilGenerator, kind)
	}
	key := normalizeKind(kind)
	if key == "" {
		return fmt.Errorf("configurator: option kind must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generators == nil {
		r.generators = make(map[OptionKind]ConstraintGenerator)
	}
	r.generators[key] = generator
	return nil
}

// Has reports whether a generator is registered for kind.
func (r *ConstraintRegistry) Has(kind OptionKind) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.generators[normalizeKind(kind)]
	return ok
}

// Generate runs the generator registered for kind against property.
func (r *ConstraintRegistry) Generate(kind OptionKind, property Property) (Constraint, error) {
	var generator ConstraintGenerator
	if r != nil {
		r.mu.RLock()
		generator = r.generators[normalizeKind(kind)]
		r.mu.RUnlock()
	}
	if generator == nil {
		return Constraint{}, &UnregisteredKindError{Kind: kind, Property: property.Slug}
	}
	constraint, err := generator(property.clone())
	if err != nil {
		return Constraint{}, fmt.Errorf("configurator: generate %q for property %q: %w", kind, property.Slug, err)
	}
	return constraint, nil
}

// Kinds returns registered kinds sorted alphabetically.
func (r *ConstraintRegistry) Kinds() []OptionKind {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]OptionKind, 0, len(r.generators))
	for kind := range r.generators {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Clone returns a shallow copy of the registry.
func (r *ConstraintRegistry) Clone() *ConstraintRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &ConstraintRegistry{
		generators: make(map[OptionKind]ConstraintGenerator, len(r.generators)),
	}
	for kind, generator := range r.generators {
		clone.generators[kind] = generator
	}
	return clone
}

// DigitalGenerator yields a single dimension named after the property with
// bounds [DefaultMinValue, DefaultMaxValue].
func DigitalGenerator(property Property) (Constraint, error) {
	return Constraint{
		Dimensions: []Dimension{{
			Name: string(property.Slug),
			Min:  DefaultMinValue,
			Max:  DefaultMaxValue,
		}},
	}, nil
}

func normalizeKind(kind OptionKind) OptionKind {
	return OptionKind(strings.ToLower(strings.TrimSpace(string(kind))))
}
