package configurator

import (
	"fmt"

	"github.com/goliatone/go-configurator/internal/hydrate"
	"github.com/goliatone/go-configurator/layering"
)

// DecodeProductJSON decodes a raw JSON descriptor. Custom size key order is
// preserved.
func DecodeProductJSON(source string, raw []byte) (Product, error) {
	product, err := productDecoder().DecodeJSON(hydrate.Context{Source: source}, raw)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return product, nil
}

// DecodeProductYAML decodes a raw YAML descriptor.
func DecodeProductYAML(source string, raw []byte) (Product, error) {
	product, err := productDecoder().DecodeYAML(hydrate.Context{Source: source}, raw)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return product, nil
}

// DecodeProductMap decodes a generic payload, for instance one already
// parsed by a CMS client. Custom size keys come out in alphabetical order.
func DecodeProductMap(source string, payload map[string]any) (Product, error) {
	product, err := productDecoder().Decode(hydrate.Context{Source: source}, payload)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return product, nil
}

// DecodeProductLayers merges payloads ordered from strongest to weakest and
// decodes the result. Properties and options merge by slug, so an override
// layer only needs the fields it changes.
func DecodeProductLayers(source string, layers ...map[string]any) (Product, error) {
	merged := layering.Merge(layers...)
	if merged == nil {
		return Product{}, fmt.Errorf("%w: no descriptor layers", ErrInvalidDescriptor)
	}
	return DecodeProductMap(source, merged)
}

func productDecoder() *hydrate.Decoder[Product] {
	return hydrate.NewDecoder[Product](
		hydrate.WithPostHook[Product](func(_ hydrate.Context, product *Product) error {
			if product.Properties == nil {
				product.Properties = []Property{}
			}
			return nil
		}),
	)
}

// LoadJSON decodes raw and loads the descriptor.
func (e *Engine) LoadJSON(raw []byte) error {
	product, err := DecodeProductJSON("json", raw)
	if err != nil {
		return err
	}
	return e.LoadProduct(product)
}

// LoadYAML decodes raw and loads the descriptor.
func (e *Engine) LoadYAML(raw []byte) error {
	product, err := DecodeProductYAML("yaml", raw)
	if err != nil {
		return err
	}
	return e.LoadProduct(product)
}
