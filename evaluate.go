package configurator

import (
	"fmt"
	"time"
)

// Snapshot returns the selection view bound into rule evaluation:
//
//	sku        product sku
//	selected   property -> option slug, auto-resolved properties included
//	dimensions property -> dimension -> number, for parametric selections
//	complete   whether ResolvedProperties would succeed
//	invalid    property -> message, as InvalidSelection
func (e *Engine) Snapshot() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() map[string]any {
	a := e.analyze()
	selected := map[string]any{}
	dimensions := map[string]any{}
	for _, property := range a.available {
		option, ok := e.selected[property.Slug]
		if !ok {
			option, ok = onlyOption(property.Options)
		}
		if !ok {
			continue
		}
		selected[string(property.Slug)] = string(option.Slug)
		if option.Constraint == nil {
			continue
		}
		values := map[string]any{}
		for _, value := range ParseComposite(option.Slug).Values {
			if value.HasValue {
				values[value.Name] = parseNumber(value.Value)
			}
		}
		dimensions[string(property.Slug)] = values
	}
	invalid := make(map[string]any, len(a.invalid))
	for property, message := range a.invalid {
		invalid[string(property)] = message
	}
	return map[string]any{
		"sku":        e.product.SKU,
		"selected":   selected,
		"dimensions": dimensions,
		"complete":   a.complete,
		"invalid":    invalid,
	}
}

// Evaluate runs expr against the current selection snapshot.
func (e *Engine) Evaluate(expr string) (Response[any], error) {
	return e.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx, falling back to the selection snapshot
// when ctx.Snapshot is nil.
func (e *Engine) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("configurator: expression must not be empty")
	}
	e.mu.Lock()
	evaluator, err := e.resolveEvaluator()
	if err != nil {
		e.mu.Unlock()
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = e.snapshot()
	}
	sku := e.product.SKU
	logger := e.evaluatorLogger()
	e.mu.Unlock()

	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, evalErr)
	logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		SKU:      sku,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// resolveEvaluator returns the configured evaluator or lazily builds the
// expr default. Callers must hold e.mu.
func (e *Engine) resolveEvaluator() (Evaluator, error) {
	if e.cfg.evaluator != nil {
		return e.cfg.evaluator, nil
	}
	exprOpts := []ExprEvaluatorOption{
		ExprWithFunctionRegistry(withBuiltins(e.cfg.functions)),
	}
	if e.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(e.cfg.programCache))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	e.cfg.evaluator = evaluator
	return evaluator, nil
}

func (e *Engine) evaluatorLogger() EvaluatorLogger {
	if e.cfg.logger == nil {
		return noopEvaluatorLogger{}
	}
	return e.cfg.logger
}

// Functions returns a registry holding the engine's custom functions
// and the selection builtins, ready to pass to NewCELEvaluator or
// NewJSEvaluator.
func (e *Engine) Functions() *FunctionRegistry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return withBuiltins(e.cfg.functions)
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	case interface{ jsEngine() }:
		return "js"
	default:
		return "custom"
	}
}
