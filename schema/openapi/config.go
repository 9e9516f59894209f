package openapi

import "strings"

const (
	defaultVersion     = "3.0.3"
	defaultTitle       = "Product Selection"
	defaultPath        = "/products/{sku}/selections"
	defaultContentType = "application/json"
)

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	operation      operationConfig
	contentType    string
	responses      map[string]responseConfig
	componentName  string
	example        bool
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: defaultVersion,
		info:           openapiInfo{Title: defaultTitle, Version: "1.0.0"},
		operation:      operationConfig{Path: defaultPath, Method: "post"},
		contentType:    defaultContentType,
		responses: map[string]responseConfig{
			"200": {Description: "Resolved order lines"},
			"422": {Description: "Selection incomplete or invalid"},
		},
	}
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion sets the document version string. Empty keeps 3.0.3.
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// InfoOption configures optional info fields.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets info.description.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo sets info.title and info.version. Empty strings keep the defaults.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// OperationOption configures optional operation fields.
type OperationOption func(*operationConfig)

// WithOperationSummary sets the operation summary.
func WithOperationSummary(summary string) OperationOption {
	return func(operation *operationConfig) {
		operation.Summary = summary
	}
}

// WithOperation sets the path, method and operationId of the selection
// submit operation. A `{sku}` segment in path is replaced with the product
// SKU. Empty inputs keep the defaults.
func WithOperation(path, method, operationID string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if path != "" {
			cfg.operation.Path = path
		}
		if method != "" {
			cfg.operation.Method = strings.ToLower(method)
		}
		if operationID != "" {
			cfg.operation.OperationID = operationID
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.operation)
			}
		}
	}
}

// WithContentType sets the request body media type.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType != "" {
			cfg.contentType = contentType
		}
	}
}

// WithResponse adds or replaces the response documented for status.
func WithResponse(status, description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		cfg.responses[status] = responseConfig{Description: description}
	}
}

// WithComponentName overrides the component the selection schema is
// published under. It defaults to the SKU in PascalCase plus "Selection".
func WithComponentName(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.componentName = strings.TrimSpace(name)
	}
}

// WithSelectionExample makes GenerateAvailable attach the engine's current
// selection, auto-resolved properties included, as the schema example.
func WithSelectionExample() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.example = true
	}
}
