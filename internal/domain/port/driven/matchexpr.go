package driven

import (
	"errors"

	"github.com/avalette/credgate/internal/domain/model"
)

// ErrInvalidExpression is wrapped by ExpressionValidator for syntactically
// invalid match expressions.
var ErrInvalidExpression = errors.New("invalid match expression")

// ErrEvaluation is wrapped by ExpressionEvaluator when an expression fails at
// evaluation time (malformed in a way only discovered against a live target).
var ErrEvaluation = errors.New("match expression evaluation failed")

// ExpressionValidator checks match-expression syntax. Expressions are
// validated once, before persistence, never again at read time.
type ExpressionValidator interface {
	Validate(expression string) error
}

// ExpressionEvaluator decides whether a match expression applies to a target.
// The expression grammar itself is the evaluator's business; this port only
// fixes the contract: string in, boolean out, given the target's attributes.
type ExpressionEvaluator interface {
	Applies(expression string, target model.Target) (bool, error)
}
