package engine

import "fmt"

// InternalError a predicate failed on well-formed facts.
// This is a defect in a rule, never a finding, so evaluation stops.
type InternalError struct {
	RuleID string
	Err    error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error evaluating rule %q: %v", e.RuleID, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
