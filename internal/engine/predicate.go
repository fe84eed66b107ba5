package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aerocheck/aerocheck/internal/models"
)

// Result of applying one predicate to one document
type Result struct {
	Violated  bool
	Offending []string
}

func satisfied() Result {
	return Result{}
}

func violated(offending []string) Result {
	return Result{Violated: true, Offending: dedupe(offending)}
}

// Predicate is a compiled, immutable check. Implementations must be safe
// for concurrent use and must not mutate facts.
type Predicate interface {
	Kind() models.PredicateKind
	Evaluate(facts *models.DocumentFacts) (Result, error)
}

// Compile builds the predicate variant named by spec.Kind
func Compile(spec models.PredicateSpec) (Predicate, error) {
	switch spec.Kind {
	case models.PredicatePresence:
		return compilePresence(spec)
	case models.PredicatePattern:
		return compilePattern(spec)
	case models.PredicateMembership:
		return compileMembership(spec)
	case models.PredicateCrossField:
		return compileCrossField(spec)
	case models.PredicateCEL:
		return compileCEL(spec)
	case "":
		return nil, fmt.Errorf("predicate kind is required")
	default:
		return nil, fmt.Errorf("unknown predicate kind %q", spec.Kind)
	}
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(value string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

func requireField(kind models.PredicateKind, field string) error {
	if strings.TrimSpace(field) == "" {
		return fmt.Errorf("%s predicate requires field", kind)
	}
	return nil
}

// --- presence ---

// presencePredicate: the field must exist with a non-blank value; when
// keywords or patterns are set, at least one of them must occur in some value.
// With requireAll every entry is checked on its own: blank entries are
// reported by row and, when markers are set, unmarked values by value.
type presencePredicate struct {
	field      string
	keywords   []string
	patterns   []*regexp.Regexp
	requireAll bool
}

func compilePresence(spec models.PredicateSpec) (Predicate, error) {
	if err := requireField(spec.Kind, spec.Field); err != nil {
		return nil, err
	}
	patterns, err := compilePatterns(spec.Patterns)
	if err != nil {
		return nil, err
	}
	return &presencePredicate{
		field:      spec.Field,
		keywords:   foldAll(spec.Keywords),
		patterns:   patterns,
		requireAll: spec.RequireAll,
	}, nil
}

func (p *presencePredicate) Kind() models.PredicateKind { return models.PredicatePresence }

func (p *presencePredicate) Evaluate(facts *models.DocumentFacts) (Result, error) {
	values, ok := facts.Values(p.field)
	if p.requireAll && ok && len(values) > 0 {
		return p.evaluateEach(values), nil
	}
	if !facts.HasValue(p.field) {
		return violated(nil), nil
	}
	if !p.hasMarkers() {
		return satisfied(), nil
	}

	for _, v := range values {
		if p.marked(v) {
			return satisfied(), nil
		}
	}
	return violated(nil), nil
}

func (p *presencePredicate) hasMarkers() bool {
	return len(p.keywords) > 0 || len(p.patterns) > 0
}

func (p *presencePredicate) marked(v string) bool {
	if len(p.keywords) > 0 && matchesMember(fold(v), p.keywords, substringMatch) {
		return true
	}
	return matchesAny(v, p.patterns)
}

// evaluateEach checks entries one by one; rows are numbered from 1
func (p *presencePredicate) evaluateEach(values []string) Result {
	var offending []string
	for i, v := range values {
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			offending = append(offending, fmt.Sprintf("row %d", i+1))
		case p.hasMarkers() && !p.marked(v):
			offending = append(offending, v)
		}
	}
	if len(offending) == 0 {
		return satisfied()
	}
	return violated(offending)
}

// --- pattern ---

type patternPredicate struct {
	field    string
	patterns []*regexp.Regexp
}

func compilePattern(spec models.PredicateSpec) (Predicate, error) {
	if err := requireField(spec.Kind, spec.Field); err != nil {
		return nil, err
	}
	if len(spec.Patterns) == 0 {
		return nil, fmt.Errorf("pattern predicate requires at least one pattern")
	}
	patterns, err := compilePatterns(spec.Patterns)
	if err != nil {
		return nil, err
	}
	return &patternPredicate{field: spec.Field, patterns: patterns}, nil
}

func (p *patternPredicate) Kind() models.PredicateKind { return models.PredicatePattern }

func (p *patternPredicate) Evaluate(facts *models.DocumentFacts) (Result, error) {
	values, _ := facts.Values(p.field)
	var offending []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !matchesAny(v, p.patterns) {
			offending = append(offending, v)
		}
	}
	if len(offending) == 0 {
		return satisfied(), nil
	}
	return violated(offending), nil
}

// --- membership ---

type membershipPredicate struct {
	field   string
	members []string
	mode    models.MembershipMode
	match   MatchModeFunc
}

func compileMembership(spec models.PredicateSpec) (Predicate, error) {
	if err := requireField(spec.Kind, spec.Field); err != nil {
		return nil, err
	}
	members := foldAll(spec.Values)
	if len(members) == 0 {
		return nil, fmt.Errorf("membership predicate requires at least one value")
	}

	mode := spec.Mode
	switch mode {
	case models.MembershipAllow, models.MembershipDeny:
	case "":
		return nil, fmt.Errorf("membership predicate requires mode (allow or deny)")
	default:
		return nil, fmt.Errorf("unknown membership mode %q", mode)
	}

	var match MatchModeFunc
	switch spec.Match {
	case models.MatchSubstring, "":
		match = substringMatch
	case models.MatchExact:
		match = exactMatch
	default:
		return nil, fmt.Errorf("unknown match mode %q", spec.Match)
	}

	return &membershipPredicate{
		field:   spec.Field,
		members: members,
		mode:    mode,
		match:   match,
	}, nil
}

func (p *membershipPredicate) Kind() models.PredicateKind { return models.PredicateMembership }

func (p *membershipPredicate) Evaluate(facts *models.DocumentFacts) (Result, error) {
	values, _ := facts.Values(p.field)
	var offending []string
	for _, v := range values {
		folded := fold(v)
		if folded == "" {
			continue
		}
		member := matchesMember(folded, p.members, p.match)
		if (p.mode == models.MembershipAllow && !member) || (p.mode == models.MembershipDeny && member) {
			offending = append(offending, strings.TrimSpace(v))
		}
	}
	if len(offending) == 0 {
		return satisfied(), nil
	}
	return violated(offending), nil
}

// --- cross_field ---

// crossFieldPredicate: values of the when field matching its patterns
// require the require field to be present and non-blank. When both fields
// hold the same number of entries they are rows of one table (a BOM), and
// each trigger needs a non-blank require entry in its own row.
type crossFieldPredicate struct {
	whenField    string
	whenPatterns []*regexp.Regexp
	requireField string
}

func compileCrossField(spec models.PredicateSpec) (Predicate, error) {
	if spec.When == nil || spec.Require == nil {
		return nil, fmt.Errorf("cross_field predicate requires when and require")
	}
	if err := requireField(spec.Kind, spec.When.Field); err != nil {
		return nil, fmt.Errorf("when: %w", err)
	}
	if err := requireField(spec.Kind, spec.Require.Field); err != nil {
		return nil, fmt.Errorf("require: %w", err)
	}
	if len(spec.When.Patterns) == 0 {
		return nil, fmt.Errorf("cross_field predicate requires when.patterns")
	}
	patterns, err := compilePatterns(spec.When.Patterns)
	if err != nil {
		return nil, err
	}
	return &crossFieldPredicate{
		whenField:    spec.When.Field,
		whenPatterns: patterns,
		requireField: spec.Require.Field,
	}, nil
}

func (p *crossFieldPredicate) Kind() models.PredicateKind { return models.PredicateCrossField }

func (p *crossFieldPredicate) Evaluate(facts *models.DocumentFacts) (Result, error) {
	values, _ := facts.Values(p.whenField)
	required, _ := facts.Values(p.requireField)
	aligned := len(required) == len(values)

	var triggers []string
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || !matchesAny(v, p.whenPatterns) {
			continue
		}
		if aligned && strings.TrimSpace(required[i]) != "" {
			continue
		}
		triggers = append(triggers, v)
	}
	if len(triggers) == 0 {
		return satisfied(), nil
	}
	if !aligned && facts.HasValue(p.requireField) {
		return satisfied(), nil
	}
	return violated(triggers), nil
}
