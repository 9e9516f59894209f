package configurator

import (
	"fmt"
	"math"
	"strings"
)

const (
	compositeSeparator = ":"
	valueSeparator     = "="
	rangeListSeparator = ","
	rangeSeparator     = "-"
)

// DimensionValue is one `dimension=value` segment of a composite slug.
// HasValue is false when the segment carries no `=` at all, which is distinct
// from an empty value after a trailing `=`.
type DimensionValue struct {
	Name     string
	Value    string
	HasValue bool
}

// Composite is a parsed composite slug: `name[:dimension=value]*`.
type Composite struct {
	Base   string
	Values []DimensionValue
}

// Value returns the value supplied for the named dimension.
func (c Composite) Value(name string) (DimensionValue, bool) {
	for _, value := range c.Values {
		if value.Name == name {
			return value, true
		}
	}
	return DimensionValue{}, false
}

// Slug formats the composite back into its slug form.
func (c Composite) Slug() Slug {
	var b strings.Builder
	b.WriteString(c.Base)
	for _, value := range c.Values {
		b.WriteString(compositeSeparator)
		b.WriteString(value.Name)
		if value.HasValue {
			b.WriteString(valueSeparator)
			b.WriteString(value.Value)
		}
	}
	return Slug(b.String())
}

// ParseComposite splits slug into its base name and dimension/value pairs.
// Parsing never fails; a slug without separators yields no pairs.
func ParseComposite(slug Slug) Composite {
	segments := strings.Split(string(slug), compositeSeparator)
	composite := Composite{
		Base:   segments[0],
		Values: make([]DimensionValue, 0, len(segments)-1),
	}
	for _, segment := range segments[1:] {
		name, value, found := strings.Cut(segment, valueSeparator)
		composite.Values = append(composite.Values, DimensionValue{
			Name:     name,
			Value:    value,
			HasValue: found,
		})
	}
	return composite
}

// FormatComposite builds a composite slug from base and name/value pairs.
func FormatComposite(base string, values ...DimensionValue) Slug {
	return Composite{Base: base, Values: values}.Slug()
}

// IsComposite reports whether slug carries dimension segments.
func IsComposite(slug Slug) bool {
	return strings.Contains(string(slug), compositeSeparator)
}

// WithinRange reports whether value lies in [min, max]. An empty bound is
// unbounded on that side; equality at either bound is inside.
func WithinRange(value, min, max string) bool {
	v := parseNumber(value)
	return parseBound(min, math.Inf(-1)) <= v && v <= parseBound(max, math.Inf(1))
}

// WithinAnyRange reports whether value lies in at least one of the
// comma-separated `min-max` segments of ranges. A segment without `-` matches
// by numeric equality.
func WithinAnyRange(ranges, value string) bool {
	for _, segment := range strings.Split(ranges, rangeListSeparator) {
		min, max, isRange := strings.Cut(segment, rangeSeparator)
		if !isRange {
			if parseNumber(segment) == parseNumber(value) {
				return true
			}
			continue
		}
		if WithinRange(value, min, max) {
			return true
		}
	}
	return false
}

func parseBound(bound string, unbounded float64) float64 {
	if bound == "" {
		return unbounded
	}
	return parseNumber(bound)
}

// OptionName is the option's name, falling back to its slug.
func OptionName(option PropertyOption) string {
	if option.Name != "" {
		return option.Name
	}
	return string(option.Slug)
}

// DisplayName renders composite options as `base: v1 (dim1) x v2 (dim2)`,
// substituting `?` for missing values. Plain options render their name.
func DisplayName(option PropertyOption) string {
	if !IsComposite(option.Slug) {
		return OptionName(option)
	}
	composite := ParseComposite(option.Slug)
	parts := make([]string, 0, len(composite.Values))
	for _, value := range composite.Values {
		shown := value.Value
		if shown == "" {
			shown = "?"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", shown, value.Name))
	}
	return composite.Base + ": " + strings.Join(parts, " x ")
}

// matchesExpression reports whether a rule entry of the form
// `name:dimension:rangeOrValue` covers one of composite's values.
func matchesExpression(entry Slug, composite Composite) bool {
	if !strings.HasPrefix(string(entry), composite.Base+compositeSeparator) {
		return false
	}
	parts := strings.Split(string(entry), compositeSeparator)
	if len(parts) < 3 {
		return false
	}
	dimension, rangeOrValue := parts[1], parts[2]
	isRange := strings.Contains(rangeOrValue, rangeSeparator)
	for _, value := range composite.Values {
		if value.Name != dimension || !value.HasValue {
			continue
		}
		if isRange && WithinAnyRange(rangeOrValue, value.Value) {
			return true
		}
		if !isRange && value.Value == rangeOrValue {
			return true
		}
	}
	return false
}

// excludedBy reports whether selected is covered by the rule entries, either
// by direct membership or, for composite selections, through a range
// expression sharing the composite base name.
func excludedBy(entries []Slug, selected Slug) bool {
	for _, entry := range entries {
		if entry == selected {
			return true
		}
	}
	if len(entries) == 0 || !IsComposite(selected) {
		return false
	}
	composite := ParseComposite(selected)
	for _, entry := range entries {
		if matchesExpression(entry, composite) {
			return true
		}
	}
	return false
}
