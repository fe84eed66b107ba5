// Package catalog loads, validates and serves the immutable rule catalog.
package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/aerocheck/aerocheck/internal/engine"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/version"
)

// Catalog is an immutable, validated rule set. Safe for concurrent use.
type Catalog struct {
	name    string
	version string
	rules   []engine.Rule
	byType  map[models.DocumentType][]engine.Rule
	byID    map[string]int
}

// standardOrder is the evaluation order across standards
var standardOrder = map[models.Standard]int{
	models.StandardITAR:   0,
	models.StandardAS9100: 1,
	models.StandardFAR:    2,
	models.StandardCustom: 3,
}

// New validates cfg and compiles every rule. Any problem fails the whole
// catalog with a *models.CatalogError listing every problem found.
func New(cfg *models.CatalogConfig) (*Catalog, error) {
	if cfg == nil {
		return nil, &models.CatalogError{Problems: []string{"catalog config is nil"}}
	}

	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(cfg.Name) == "" {
		addf("name is required")
	}
	problems = append(problems, checkVersions(cfg)...)
	if len(cfg.Rules) == 0 {
		addf("catalog must have at least one rule")
	}

	rules := make([]engine.Rule, 0, len(cfg.Rules))
	seen := make(map[string]bool, len(cfg.Rules))
	for i, spec := range cfg.Rules {
		label := spec.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}

		ruleProblems := validateSpec(spec)
		if spec.ID != "" {
			if seen[spec.ID] {
				ruleProblems = append(ruleProblems, "duplicate id")
			}
			seen[spec.ID] = true
		}

		rule, err := engine.CompileRule(cloneSpec(spec))
		if err != nil {
			ruleProblems = append(ruleProblems, "predicate: "+err.Error())
		}

		for _, p := range ruleProblems {
			addf("rule %s: %s", label, p)
		}
		if len(ruleProblems) == 0 {
			rules = append(rules, rule)
		}
	}

	if len(problems) > 0 {
		return nil, &models.CatalogError{Problems: problems}
	}

	sort.Slice(rules, func(i, j int) bool {
		return lessRule(rules[i].Spec, rules[j].Spec)
	})

	c := &Catalog{
		name:    cfg.Name,
		version: cfg.Version,
		rules:   rules,
		byType:  make(map[models.DocumentType][]engine.Rule),
		byID:    make(map[string]int, len(rules)),
	}
	for i, r := range rules {
		c.byID[r.Spec.ID] = i
		for _, t := range r.Spec.AppliesTo {
			c.byType[t] = append(c.byType[t], r)
		}
	}
	return c, nil
}

func lessRule(a, b models.RuleSpec) bool {
	if oa, ob := standardOrder[a.Standard], standardOrder[b.Standard]; oa != ob {
		return oa < ob
	}
	return a.ID < b.ID
}

func validateSpec(spec models.RuleSpec) []string {
	var problems []string
	if strings.TrimSpace(spec.ID) == "" {
		problems = append(problems, "id is required")
	}
	if !spec.Standard.Valid() {
		problems = append(problems, fmt.Sprintf("unknown standard %q", spec.Standard))
	}
	if !spec.Severity.Valid() {
		problems = append(problems, fmt.Sprintf("unknown severity %q", spec.Severity))
	}
	if len(spec.AppliesTo) == 0 {
		problems = append(problems, "applies_to must name at least one document type")
	}
	for _, t := range spec.AppliesTo {
		if !t.Valid() {
			problems = append(problems, fmt.Sprintf("unknown document type %q", t))
		}
	}
	if spec.CostRange.Min < 0 || spec.CostRange.Max < 0 {
		problems = append(problems, "cost_range must not be negative")
	}
	if spec.CostRange.Min > spec.CostRange.Max {
		problems = append(problems, fmt.Sprintf("cost_range min %d exceeds max %d", spec.CostRange.Min, spec.CostRange.Max))
	}
	if strings.TrimSpace(spec.Description) == "" {
		problems = append(problems, "description is required")
	}
	if strings.TrimSpace(spec.Fix) == "" {
		problems = append(problems, "fix is required")
	}
	return problems
}

// checkVersions: version must be semver; min_engine_version must be met by this build
func checkVersions(cfg *models.CatalogConfig) []string {
	var problems []string
	if _, err := semver.NewVersion(cfg.Version); err != nil {
		problems = append(problems, fmt.Sprintf("version %q is not a semantic version", cfg.Version))
	}
	if cfg.MinEngineVersion == "" {
		return problems
	}

	constraint, err := semver.NewConstraint(">= " + cfg.MinEngineVersion)
	if err != nil {
		return append(problems, fmt.Sprintf("min_engine_version %q is not a semantic version", cfg.MinEngineVersion))
	}
	engineVersion := semver.MustParse(version.EngineVersion)
	if !constraint.Check(engineVersion) {
		problems = append(problems, fmt.Sprintf("catalog requires engine >= %s (this engine is %s)", cfg.MinEngineVersion, version.EngineVersion))
	}
	return problems
}

// cloneSpec detaches the spec from caller-owned slices
func cloneSpec(spec models.RuleSpec) models.RuleSpec {
	spec.AppliesTo = slices.Clone(spec.AppliesTo)
	p := spec.Predicate
	p.Keywords = slices.Clone(p.Keywords)
	p.Patterns = slices.Clone(p.Patterns)
	p.Values = slices.Clone(p.Values)
	if p.When != nil {
		w := *p.When
		w.Patterns = slices.Clone(w.Patterns)
		p.When = &w
	}
	if p.Require != nil {
		r := *p.Require
		r.Patterns = slices.Clone(r.Patterns)
		p.Require = &r
	}
	spec.Predicate = p
	return spec
}

// RulesFor returns the rules routed to t, ordered by standard then id
func (c *Catalog) RulesFor(t models.DocumentType) []engine.Rule {
	return slices.Clone(c.byType[t])
}

// Rules returns every rule, ordered by standard then id
func (c *Catalog) Rules() []engine.Rule {
	return slices.Clone(c.rules)
}

// Rule looks up a rule by id
func (c *Catalog) Rule(id string) (engine.Rule, bool) {
	i, ok := c.byID[id]
	if !ok {
		return engine.Rule{}, false
	}
	return c.rules[i], true
}

func (c *Catalog) Name() string    { return c.name }
func (c *Catalog) Version() string { return c.version }
func (c *Catalog) Len() int        { return len(c.rules) }
