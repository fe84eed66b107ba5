// Package engine evaluates compiled compliance rules against document facts.
package engine

import (
	"fmt"

	"github.com/aerocheck/aerocheck/internal/models"
)

// Rule is a rule spec paired with its compiled predicate
type Rule struct {
	Spec      models.RuleSpec
	Predicate Predicate
}

// CompileRule compiles the predicate of spec
func CompileRule(spec models.RuleSpec) (Rule, error) {
	pred, err := Compile(spec.Predicate)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Spec: spec, Predicate: pred}, nil
}

// RuleSet answers which rules apply to a document type, in evaluation order
type RuleSet interface {
	RulesFor(t models.DocumentType) []Rule
}

// Engine maps (rules, facts) to violations. It holds no state between calls.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Evaluate applies every rule routed to facts.DocumentType, in the rule
// set's order. Malformed facts yield a *models.FactsError and no violations;
// a failing predicate yields an *InternalError and no violations.
func (e *Engine) Evaluate(rules RuleSet, facts *models.DocumentFacts) ([]models.Violation, error) {
	if err := facts.Validate(); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, fmt.Errorf("rule set is nil")
	}

	applicable := rules.RulesFor(facts.DocumentType)
	violations := make([]models.Violation, 0, len(applicable))

	for _, rule := range applicable {
		// routing is the rule set's job; skip silently if it hands us a mismatch
		if !rule.Spec.AppliesToType(facts.DocumentType) {
			continue
		}

		result, err := rule.Predicate.Evaluate(facts)
		if err != nil {
			return nil, &InternalError{RuleID: rule.Spec.ID, Err: err}
		}
		if !result.Violated {
			continue
		}
		violations = append(violations, newViolation(rule.Spec, result.Offending))
	}

	return violations, nil
}

func newViolation(spec models.RuleSpec, offending []string) models.Violation {
	values := make([]string, len(offending))
	copy(values, offending)
	return models.Violation{
		RuleID:          spec.ID,
		Standard:        spec.Standard,
		Description:     spec.Description,
		Severity:        spec.Severity,
		CostRange:       spec.CostRange,
		Fix:             spec.Fix,
		Reference:       spec.Reference,
		OffendingValues: values,
	}
}
