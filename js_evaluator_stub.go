//go:build !js_eval

package configurator

// NewJSEvaluator returns an evaluator that fails with ErrJSUnavailable.
// Build with -tags js_eval to run JavaScript rules through goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return unavailableJSEvaluator{}
}

type unavailableJSEvaluator struct{}

func (unavailableJSEvaluator) Evaluate(RuleContext, string) (any, error) {
	return nil, wrapEvaluatorError("js", ErrJSUnavailable)
}

func (unavailableJSEvaluator) Compile(string) (CompiledRule, error) {
	return nil, wrapEvaluatorError("js", ErrJSUnavailable)
}

func (unavailableJSEvaluator) jsEngine() {}

// JSEvaluatorAvailable reports whether NewJSEvaluator runs JavaScript.
func JSEvaluatorAvailable() bool {
	return false
}
