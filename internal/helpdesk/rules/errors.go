package rules

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax          = errors.New("condition syntax error")
	ErrTypeMismatch    = errors.New("condition type mismatch")
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownFunction = errors.New("unknown function")
	ErrRuleTimeout     = errors.New("rule evaluation timed out")
	ErrTemplate        = errors.New("message template error")
)

// RuleEvaluationError reports a single rule that could not be evaluated. Evaluation of
// the other rules continues.
type RuleEvaluationError struct {
	RuleID   int64
	RuleName string
	Err      error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %d (%s): %v", e.RuleID, e.RuleName, e.Err)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Err }
