package configurator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func fixturePath(t *testing.T, name string) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to resolve caller")
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	path := fixturePath(t, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return raw
}

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(readFixture(t, name), &out); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return out
}

func newPostersEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	engine := NewEngine(opts...)
	if err := engine.LoadJSON(readFixture(t, "products/posters.json")); err != nil {
		t.Fatalf("load posters: %v", err)
	}
	return engine
}

func mustSelect(t *testing.T, engine *Engine, property, option Slug) {
	t.Helper()

	if err := engine.SelectSlug(property, option); err != nil {
		t.Fatalf("select %s=%s: %v", property, option, err)
	}
}

func optionSlugs(options []PropertyOption) []Slug {
	out := make([]Slug, len(options))
	for i, option := range options {
		out[i] = option.Slug
	}
	return out
}
