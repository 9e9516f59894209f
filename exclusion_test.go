package configurator

import (
	"reflect"
	"testing"
)

func exclusionProperties() []Property {
	return []Property{
		{Slug: "color", Title: "Color"},
		{Slug: "size", Title: "Size"},
		{Slug: "finish"},
	}
}

func selection(pairs ...string) []SelectedOption {
	out := make([]SelectedOption, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, SelectedOption{
			Property: Slug(pairs[i]),
			Option:   PropertyOption{Slug: Slug(pairs[i+1])},
		})
	}
	return out
}

func TestResolveExclusionsSingleTrigger(t *testing.T) {
	groups := []ExcludeGroup{{
		{Property: "color", Options: []Slug{"red"}},
		{Property: "size", Options: []Slug{"large", "xl"}},
	}}

	got := ResolveExclusions(exclusionProperties(), groups, selection("color", "red"))
	if !got.IsExcluded("size", "large") || !got.IsExcluded("size", "xl") {
		t.Fatalf("expected large and xl to be excluded, got %v", got.ExcludedOptions)
	}
	if got.IsExcluded("color", "red") {
		t.Fatalf("triggering rule must not exclude its own options")
	}
	if len(got.IncompatibleProperties) != 0 {
		t.Fatalf("single trigger should not report incompatibility, got %v", got.IncompatibleProperties)
	}
	if want := []Slug{"large", "xl"}; !reflect.DeepEqual(want, got.ExcludedOptions["size"].Sorted()) {
		t.Fatalf("sorted mismatch: %v", got.ExcludedOptions["size"].Sorted())
	}
}

func TestResolveExclusionsNoTrigger(t *testing.T) {
	groups := []ExcludeGroup{{
		{Property: "color", Options: []Slug{"red"}},
		{Property: "size", Options: []Slug{"large"}},
	}}

	got := ResolveExclusions(exclusionProperties(), groups, selection("color", "blue"))
	if len(got.ExcludedOptions) != 0 || len(got.IncompatibleProperties) != 0 {
		t.Fatalf("expected empty result, got %#v", got)
	}
	empty := ResolveExclusions(exclusionProperties(), groups, nil)
	if empty.ExcludedOptions == nil || empty.IncompatibleProperties == nil {
		t.Fatalf("empty result should carry initialized maps")
	}
}

func TestResolveExclusionsDoubleTrigger(t *testing.T) {
	groups := []ExcludeGroup{{
		{Property: "color", Options: []Slug{"red"}},
		{Property: "size", Options: []Slug{"large"}},
		{Property: "finish", Options: []Slug{"gloss"}},
	}}

	got := ResolveExclusions(exclusionProperties(), groups, selection("color", "red", "size", "large"))
	want := map[Slug]string{
		"color": `"Color" = [red] is not compatible with "Size" = [large]`,
		"size":  `"Size" = [large] is not compatible with "Color" = [red]`,
	}
	if !reflect.DeepEqual(want, got.IncompatibleProperties) {
		t.Fatalf("incompatible mismatch:\nwant: %#v\n got: %#v", want, got.IncompatibleProperties)
	}
	if !got.IsExcluded("finish", "gloss") {
		t.Fatalf("non-triggered rule should still exclude its options")
	}
	if got.IsExcluded("size", "large") || got.IsExcluded("color", "red") {
		t.Fatalf("triggered rules must not exclude their own options")
	}
}

func TestResolveExclusionsAppendsMessagesAcrossGroups(t *testing.T) {
	groups := []ExcludeGroup{
		{
			{Property: "color", Options: []Slug{"red"}},
			{Property: "size", Options: []Slug{"large"}},
		},
		{
			{Property: "color", Options: []Slug{"red"}},
			{Property: "finish", Options: []Slug{"gloss"}},
		},
	}

	got := ResolveExclusions(exclusionProperties(), groups, selection("color", "red", "size", "large", "finish", "gloss"))
	want := `"Color" = [red] is not compatible with "Size" = [large], "finish" = [gloss]`
	if got.IncompatibleProperties["color"] != want {
		t.Fatalf("unexpected color message:\nwant: %s\n got: %s", want, got.IncompatibleProperties["color"])
	}
	if got.IncompatibleProperties["finish"] != `"finish" = [gloss] is not compatible with "Color" = [red]` {
		t.Fatalf("unexpected finish message %q", got.IncompatibleProperties["finish"])
	}
}

func TestResolveExclusionsRangeRule(t *testing.T) {
	groups := []ExcludeGroup{{
		{Property: "size", Options: []Slug{"custom:width:200-300"}},
		{Property: "finish", Options: []Slug{"gloss"}},
	}}

	hit := ResolveExclusions(exclusionProperties(), groups, selection("size", "custom:width=250:height=100"))
	if !hit.IsExcluded("finish", "gloss") {
		t.Fatalf("expected gloss excluded for width in range")
	}
	miss := ResolveExclusions(exclusionProperties(), groups, selection("size", "custom:width=150:height=100"))
	if miss.IsExcluded("finish", "gloss") {
		t.Fatalf("gloss should stay available for width out of range")
	}
}

func TestResolveExclusionsIsDeterministic(t *testing.T) {
	groups := []ExcludeGroup{{
		{Property: "color", Options: []Slug{"red"}},
		{Property: "size", Options: []Slug{"large"}},
		{Property: "finish", Options: []Slug{"gloss"}},
	}}
	selected := selection("color", "red", "size", "large")

	first := ResolveExclusions(exclusionProperties(), groups, selected)
	second := ResolveExclusions(exclusionProperties(), groups, selected)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated resolution differs")
	}

	clone := first.clone()
	clone.ExcludedOptions["finish"]["matte"] = struct{}{}
	if first.IsExcluded("finish", "matte") {
		t.Fatalf("clone shares storage with original")
	}
}
