package realm

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Predicate selects records of type T.
type Predicate[T any] interface {
	Match(obj *T) (bool, error)
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc[T any] func(obj *T) (bool, error)

// Match calls f(obj).
func (f PredicateFunc[T]) Match(obj *T) (bool, error) {
	return f(obj)
}

// Where builds a predicate from a Go closure.
func Where[T any](fn func(obj *T) bool) Predicate[T] {
	return PredicateFunc[T](func(obj *T) (bool, error) {
		return fn(obj), nil
	})
}

// All matches every record.
func All[T any]() Predicate[T] {
	return PredicateFunc[T](func(*T) (bool, error) {
		return true, nil
	})
}

// exprPredicate evaluates a compiled expr-lang program against each record.
type exprPredicate[T any] struct {
	source  string
	program *exprvm.Program
}

// Expr compiles expression into a predicate over T's exported fields.
//
//	p, err := realm.Expr[Entry](`Rev > 1 && Value startsWith "a"`)
//
// The expression is type-checked against T once, here, and must yield a bool.
func Expr[T any](expression string) (Predicate[T], error) {
	if expression == "" {
		return nil, newError(ErrCodeValidation, "expr", "", "expression must not be empty", nil)
	}

	var zero T
	program, err := exprlang.Compile(expression, exprlang.Env(zero), exprlang.AsBool())
	if err != nil {
		return nil, newError(ErrCodeValidation, "expr", fmt.Sprintf("%T", zero), expression, err)
	}
	return &exprPredicate[T]{source: expression, program: program}, nil
}

func (p *exprPredicate[T]) Match(obj *T) (bool, error) {
	if obj == nil {
		return false, nil
	}
	out, err := exprlang.Run(p.program, *obj)
	if err != nil {
		return false, fmt.Errorf("expr %q: %w", p.source, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func (p *exprPredicate[T]) String() string {
	return p.source
}
