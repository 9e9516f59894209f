package openapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	configurator "github.com/goliatone/go-configurator"
)

func TestGeneratorDocumentsEveryOption(t *testing.T) {
	t.Parallel()

	engine := loadPosters(t)
	doc, err := NewGenerator().Generate(engine.Product())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if err := validateDocument(doc); err != nil {
		t.Fatalf("document failed validation: %v", err)
	}

	paths := doc["paths"].(map[string]any)
	item, ok := paths["/products/posters/selections"].(map[string]any)
	if !ok {
		t.Fatalf("expected sku substituted into path, got %v", keys(paths))
	}
	operation := item["post"].(map[string]any)
	if got := operation["operationId"]; got != "post:/products/posters/selections" {
		t.Fatalf("unexpected operationId %v", got)
	}
	ref := operation["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)["$ref"]
	if ref != "#/components/schemas/PostersSelection" {
		t.Fatalf("unexpected schema ref %v", ref)
	}

	schema := selectionComponent(t, doc, "PostersSelection")
	if schema["title"] != "Poster" {
		t.Fatalf("expected product title, got %v", schema["title"])
	}
	if schema["additionalProperties"] != false {
		t.Fatalf("expected closed object schema")
	}
	wantRequired := []string{"color", "size", "finish", "frame", "quantity"}
	if got := schema["required"]; !reflect.DeepEqual(got, wantRequired) {
		t.Fatalf("required mismatch: want %v got %v", wantRequired, got)
	}

	props := schema["properties"].(map[string]any)
	if len(props) != 6 {
		t.Fatalf("expected 6 properties, got %v", keys(props))
	}
	color := props["color"].(map[string]any)
	variants := color["oneOf"].([]any)
	if len(variants) != 2 {
		t.Fatalf("expected 2 color variants, got %d", len(variants))
	}
	if first := variants[0].(map[string]any); first["const"] != "red" || first["title"] != "Red" {
		t.Fatalf("unexpected first color variant %v", first)
	}
	lamination := props["lamination"].(map[string]any)
	if lamination["title"] != "lamination" {
		t.Fatalf("expected slug fallback title, got %v", lamination["title"])
	}
}

func TestGeneratorDescribesParametricOptions(t *testing.T) {
	t.Parallel()

	engine := loadPosters(t)
	doc, err := NewGenerator().Generate(engine.Product())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	props := selectionComponent(t, doc, "PostersSelection")["properties"].(map[string]any)

	size := findVariant(t, props, "size", "Custom size")
	if size["pattern"] != "^custom(:[^:=]+=[^:]*)+$" {
		t.Fatalf("unexpected pattern %v", size["pattern"])
	}
	if size["x-unit"] != "mm" {
		t.Fatalf("expected unit mm, got %v", size["x-unit"])
	}
	wantDims := []any{
		map[string]any{"name": "width", "minimum": 10.0, "maximum": 300.0},
		map[string]any{"name": "height", "minimum": 10.0, "maximum": 400.0},
	}
	if !reflect.DeepEqual(size["x-dimensions"], wantDims) {
		t.Fatalf("dimension mismatch: %v", size["x-dimensions"])
	}

	quantity := findVariant(t, props, "quantity", "custom")
	dims := quantity["x-dimensions"].([]any)
	if len(dims) != 1 {
		t.Fatalf("expected one quantity dimension, got %v", dims)
	}
	dim := dims[0].(map[string]any)
	if _, ok := dim["maximum"]; ok {
		t.Fatalf("unbounded maximum should be omitted, got %v", dim)
	}
	if dim["minimum"] != configurator.DefaultMinValue {
		t.Fatalf("expected default minimum, got %v", dim["minimum"])
	}
	if _, ok := quantity["x-kind"]; ok {
		t.Fatalf("generated option should not carry a kind, got %v", quantity["x-kind"])
	}
	if declaring := findVariant(t, props, "quantity", "100 pcs"); declaring["x-kind"] != "digital" {
		t.Fatalf("expected digital kind on the declaring option, got %v", declaring["x-kind"])
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("document should be JSON encodable: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected encoded document")
	}
}

func TestGenerateAvailableDropsExcludedOptions(t *testing.T) {
	t.Parallel()

	engine := loadPosters(t)
	if err := engine.SelectSlug("color", "blue"); err != nil {
		t.Fatalf("select color: %v", err)
	}

	doc, err := NewGenerator(WithComponentName("PosterForm")).GenerateAvailable(engine)
	if err != nil {
		t.Fatalf("GenerateAvailable returned error: %v", err)
	}
	schema := selectionComponent(t, doc, "PosterForm")
	props := schema["properties"].(map[string]any)
	if _, ok := props["frame"]; ok {
		t.Fatalf("frame has no available options and should be omitted")
	}
	for _, slug := range schema["required"].([]string) {
		if slug == "frame" {
			t.Fatalf("frame should not be required")
		}
	}
}

func TestGenerateAvailableSelectionExample(t *testing.T) {
	t.Parallel()

	engine := loadPosters(t)
	if err := engine.SelectSlug("size", "custom:width=100:height=200"); err != nil {
		t.Fatalf("select size: %v", err)
	}

	doc, err := NewGenerator(WithSelectionExample()).GenerateAvailable(engine)
	if err != nil {
		t.Fatalf("GenerateAvailable returned error: %v", err)
	}
	example, ok := selectionComponent(t, doc, "PostersSelection")["example"].(map[string]any)
	if !ok {
		t.Fatalf("expected selection example")
	}
	want := map[string]any{"size": "custom:width=100:height=200", "lamination": "none"}
	if !reflect.DeepEqual(want, example) {
		t.Fatalf("example mismatch: want %v got %v", want, example)
	}

	plain, err := NewGenerator().GenerateAvailable(engine)
	if err != nil {
		t.Fatalf("GenerateAvailable returned error: %v", err)
	}
	if _, ok := selectionComponent(t, plain, "PostersSelection")["example"]; ok {
		t.Fatalf("example should be opt-in")
	}
}

func TestGenerateAvailableNilEngine(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator().GenerateAvailable(nil); err == nil {
		t.Fatalf("expected error for nil engine")
	}
}

func TestGeneratorOptions(t *testing.T) {
	t.Parallel()

	generator := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Shop", "2.0.0", WithInfoDescription("Storefront selections")),
		WithOperation("/configure/{sku}", "PUT", "configureProduct", WithOperationSummary("Configure a product")),
		WithContentType("application/vnd.selection+json"),
		WithResponse("409", "Conflicting selection"),
	)
	doc, err := generator.Generate(configurator.Product{
		SKU: "wall-art",
		Properties: []configurator.Property{{
			Slug:    "color",
			Options: []configurator.PropertyOption{{Slug: "red"}},
		}},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if doc["openapi"] != "3.1.0" {
		t.Fatalf("unexpected version %v", doc["openapi"])
	}
	info := doc["info"].(map[string]any)
	if info["title"] != "Shop" || info["description"] != "Storefront selections" {
		t.Fatalf("unexpected info %v", info)
	}
	operation := doc["paths"].(map[string]any)["/configure/wall-art"].(map[string]any)["put"].(map[string]any)
	if operation["operationId"] != "configureProduct" || operation["summary"] != "Configure a product" {
		t.Fatalf("unexpected operation %v", operation)
	}
	responses := operation["responses"].(map[string]any)
	if len(responses) != 3 {
		t.Fatalf("expected default responses plus 409, got %v", keys(responses))
	}
	content := operation["requestBody"].(map[string]any)["content"].(map[string]any)
	if _, ok := content["application/vnd.selection+json"]; !ok {
		t.Fatalf("expected custom content type, got %v", keys(content))
	}
	schema := selectionComponent(t, doc, "WallArtSelection")
	if _, ok := schema["required"]; ok {
		t.Fatalf("single plain option should not be required")
	}
}

func TestComponentName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"posters":      "PostersSelection",
		"wall-art_xl":  "WallArtXlSelection",
		"flyer 2 side": "Flyer2SideSelection",
		"":             "Selection",
	}
	for sku, want := range cases {
		if got := componentName(sku); got != want {
			t.Fatalf("componentName(%q): want %q got %q", sku, want, got)
		}
	}
}

func TestValidateDocumentRejectsMissingSections(t *testing.T) {
	t.Parallel()

	if err := validateDocument(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
	if err := validateDocument(map[string]any{"openapi": "3.0.3"}); err == nil {
		t.Fatalf("expected error for missing info")
	}
	doc := map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "x", "version": "1"},
		"paths":   map[string]any{},
	}
	if err := validateDocument(doc); err == nil {
		t.Fatalf("expected error for empty paths")
	}
}

func TestGeneratorConcurrentAccess(t *testing.T) {
	t.Parallel()

	engine := loadPosters(t)
	generator := NewGenerator()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			doc, err := generator.GenerateAvailable(engine)
			if err != nil {
				t.Errorf("GenerateAvailable returned error: %v", err)
				return
			}
			if doc["components"] == nil {
				t.Errorf("expected components section")
			}
		}()
	}
	wg.Wait()
}

func loadPosters(t *testing.T) *configurator.Engine {
	t.Helper()

	path := filepath.Join("..", "..", "testdata", "products", "posters.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %q: %v", path, err)
	}
	engine := configurator.NewEngine()
	if err := engine.LoadJSON(raw); err != nil {
		t.Fatalf("load fixture %q: %v", path, err)
	}
	return engine
}

func selectionComponent(t *testing.T, doc map[string]any, name string) map[string]any {
	t.Helper()

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	schema, ok := schemas[name].(map[string]any)
	if !ok {
		t.Fatalf("component %q missing, have %v", name, keys(schemas))
	}
	return schema
}

func findVariant(t *testing.T, props map[string]any, property, title string) map[string]any {
	t.Helper()

	prop, ok := props[property].(map[string]any)
	if !ok {
		t.Fatalf("property %q missing", property)
	}
	for _, variant := range prop["oneOf"].([]any) {
		entry := variant.(map[string]any)
		if entry["title"] == title {
			return entry
		}
	}
	t.Fatalf("variant %q not found in %q", title, property)
	return nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
