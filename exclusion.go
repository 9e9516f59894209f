package configurator

import (
	"sort"
	"strings"
)

// SelectedOption pairs a property with the option chosen for it.
type SelectedOption struct {
	Property Slug
	Option   PropertyOption
}

// SlugSet is an unordered set of slugs.
type SlugSet map[Slug]struct{}

// Has reports membership.
func (s SlugSet) Has(slug Slug) bool {
	_, ok := s[slug]
	return ok
}

// Sorted returns the members in ascending order.
func (s SlugSet) Sorted() []Slug {
	out := make([]Slug, 0, len(s))
	for slug := range s {
		out = append(out, slug)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s SlugSet) clone() SlugSet {
	out := make(SlugSet, len(s))
	for slug := range s {
		out[slug] = struct{}{}
	}
	return out
}

// Exclusions is the outcome of applying exclude groups to a selection.
type Exclusions struct {
	// ExcludedOptions lists, per property, the option slugs that can no
	// longer be chosen.
	ExcludedOptions map[Slug]SlugSet
	// IncompatibleProperties maps properties whose selections conflict to a
	// human readable message.
	IncompatibleProperties map[Slug]string
}

// IsExcluded reports whether option is excluded for property.
func (e Exclusions) IsExcluded(property, option Slug) bool {
	return e.ExcludedOptions[property].Has(option)
}

func (e Exclusions) clone() Exclusions {
	out := Exclusions{
		ExcludedOptions:        make(map[Slug]SlugSet, len(e.ExcludedOptions)),
		IncompatibleProperties: make(map[Slug]string, len(e.IncompatibleProperties)),
	}
	for property, set := range e.ExcludedOptions {
		out.ExcludedOptions[property] = set.clone()
	}
	for property, message := range e.IncompatibleProperties {
		out.IncompatibleProperties[property] = message
	}
	return out
}

// ResolveExclusions applies every exclude group to the current selection.
//
// Within a group, a rule is triggered when the selection of its property is
// covered by the rule's options. With exactly one triggered rule the other
// rules' options become excluded for their own properties. With more than one,
// the owning properties are reported as incompatible and the rules that did
// not trigger still contribute their exclusions. The result depends only on
// the inputs and is recomputed from scratch on every call.
func ResolveExclusions(properties []Property, groups []ExcludeGroup, selected []SelectedOption) Exclusions {
	out := Exclusions{
		ExcludedOptions:        map[Slug]SlugSet{},
		IncompatibleProperties: map[Slug]string{},
	}
	if len(groups) == 0 || len(selected) == 0 {
		return out
	}

	titles := make(map[Slug]string, len(properties))
	for _, property := range properties {
		titles[property.Slug] = property.label()
	}

	for _, group := range groups {
		triggered := make([]bool, len(group))
		count := 0
		for i, rule := range group {
			if ruleTriggered(rule, selected) {
				triggered[i] = true
				count++
			}
		}
		if count == 0 {
			continue
		}
		if count > 1 {
			recordIncompatible(out.IncompatibleProperties, group, triggered, titles)
		}
		for i, rule := range group {
			if triggered[i] {
				continue
			}
			set, ok := out.ExcludedOptions[rule.Property]
			if !ok {
				set = SlugSet{}
				out.ExcludedOptions[rule.Property] = set
			}
			for _, option := range rule.Options {
				set[option] = struct{}{}
			}
		}
	}
	return out
}

func ruleTriggered(rule ExcludeRule, selected []SelectedOption) bool {
	for _, entry := range selected {
		if entry.Property != rule.Property {
			continue
		}
		if excludedBy(rule.Options, entry.Option.Slug) {
			return true
		}
	}
	return false
}

type conflict struct {
	property Slug
	label    string
}

func recordIncompatible(messages map[Slug]string, group ExcludeGroup, triggered []bool, titles map[Slug]string) {
	conflicts := make([]conflict, 0, len(group))
	for i, rule := range group {
		if !triggered[i] {
			continue
		}
		title, ok := titles[rule.Property]
		if !ok {
			title = string(rule.Property)
		}
		options := make([]string, len(rule.Options))
		for j, option := range rule.Options {
			options[j] = string(option)
		}
		conflicts = append(conflicts, conflict{
			property: rule.Property,
			label:    `"` + title + `" = [` + strings.Join(options, ", ") + `]`,
		})
	}

	for _, current := range conflicts {
		rest := make([]string, 0, len(conflicts)-1)
		for _, other := range conflicts {
			if other.property != current.property {
				rest = append(rest, other.label)
			}
		}
		if len(rest) == 0 {
			continue
		}
		joined := strings.Join(rest, ", ")
		if existing, ok := messages[current.property]; ok {
			messages[current.property] = existing + ", " + joined
			continue
		}
		messages[current.property] = current.label + " is not compatible with " + joined
	}
}
