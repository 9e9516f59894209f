package configurator

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a callable exposed to evaluators by name.
type Function func(args ...any) (any, error)

// FunctionRegistry stores functions keyed by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name. Registering a name twice is an error.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("configurator: function %q is nil", name)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("configurator: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("configurator: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("configurator: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("configurator: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes the functions in registry to the default
// evaluator. The registry is cloned.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the engine's evaluator.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *engineConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// builtinFunctions returns the selection helpers available to every engine
// evaluator.
func builtinFunctions() map[string]Function {
	return map[string]Function{
		"within_range": func(args ...any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("within_range expects 2 arguments, got %d", len(args))
			}
			return WithinAnyRange(fmt.Sprint(args[1]), fmt.Sprint(args[0])), nil
		},
		"composite_base": func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("composite_base expects 1 argument, got %d", len(args))
			}
			return ParseComposite(Slug(fmt.Sprint(args[0]))).Base, nil
		},
	}
}

// withBuiltins returns a registry holding registry's functions plus the
// builtins not already shadowed by it.
func withBuiltins(registry *FunctionRegistry) *FunctionRegistry {
	merged := registry.Clone()
	if merged == nil {
		merged = NewFunctionRegistry()
	}
	for name, fn := range builtinFunctions() {
		if !merged.Has(name) {
			_ = merged.Register(name, fn)
		}
	}
	return merged
}
