package configurator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnregisteredKind indicates an option declared a kind with no
	// registered constraint generator.
	ErrUnregisteredKind = errors.New("configurator: unregistered option kind")
	// ErrUnknownProperty indicates a selection targeted a property missing
	// from the loaded descriptor.
	ErrUnknownProperty = errors.New("configurator: unknown property")
	// ErrUnknownOption indicates a slug did not match any option of a property.
	ErrUnknownOption = errors.New("configurator: unknown option")
	// ErrInvalidDescriptor indicates the descriptor failed structural validation.
	ErrInvalidDescriptor = errors.New("configurator: invalid descriptor")
	// ErrNilGenerator indicates a registration without a generator.
	ErrNilGenerator = errors.New("configurator: constraint generator is nil")
	// ErrNoEvaluator indicates no evaluator could be resolved.
	ErrNoEvaluator = errors.New("configurator: evaluator not configured")
)

// UnregisteredKindError reports the kind and the property that declared it.
type UnregisteredKindError struct {
	Kind     OptionKind
	Property Slug
}

func (e *UnregisteredKindError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("configurator: creator for kind %q was not registered (property %q)", e.Kind, e.Property)
}

// Is matches ErrUnregisteredKind.
func (e *UnregisteredKindError) Is(target error) bool {
	return target == ErrUnregisteredKind
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("configurator: %s evaluator %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "configurator:") {
		return err
	}
	return fmt.Errorf("configurator: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
