// Package matchexpr implements the match-expression validator and evaluator
// ports on top of the expr language. Expressions see a single `target`
// variable exposing connectUrl, alias, labels, and annotations.
package matchexpr

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ExpressionValidator = (*Engine)(nil)
	_ driven.ExpressionEvaluator = (*Engine)(nil)
)

// Engine compiles and runs match expressions. It is stateless; the store
// never caches compiled programs because records are immutable and scans are
// cheap at operational scale.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Validate checks expression syntax by compiling it against a representative
// target environment. This runs once, before a record is persisted; read
// paths never re-validate.
func (e *Engine) Validate(expression string) error {
	_, err := expr.Compile(expression, expr.Env(environFor(model.Target{})), expr.AsBool())
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrInvalidExpression, err)
	}
	return nil
}

// Applies evaluates expression against target. Failures here are evaluation
// errors: the expression was syntactically fine at write time but does not
// produce a boolean for this target.
func (e *Engine) Applies(expression string, target model.Target) (bool, error) {
	env := environFor(target)

	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("%w: %v", driven.ErrEvaluation, err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("%w: %v", driven.ErrEvaluation, err)
	}

	applies, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression yielded %T, not a boolean", driven.ErrEvaluation, out)
	}
	return applies, nil
}

// environFor builds the expression environment for a target. Nil maps are
// replaced with empty ones so label/annotation lookups never explode on
// targets without metadata.
func environFor(target model.Target) map[string]any {
	labels := target.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	annotations := target.Annotations
	if annotations == nil {
		annotations = map[string]string{}
	}

	return map[string]any{
		"target": map[string]any{
			"connectUrl":  target.ConnectURL,
			"alias":       target.Alias,
			"labels":      labels,
			"annotations": annotations,
		},
	}
}
