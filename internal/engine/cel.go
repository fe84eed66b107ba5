package engine

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

// environment is shared; cel.Env and cel.Program are safe for concurrent use
func environment() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
		)
		if celEnvErr != nil {
			celEnvErr = fmt.Errorf("failed to create CEL environment: %w", celEnvErr)
		}
	})
	return celEnv, celEnvErr
}

// celPredicate evaluates an expression over the facts.
// A bool result is the compliance verdict (true = compliant); a list of
// strings is the offending values (violated when non-empty).
type celPredicate struct {
	expr string
	prg  cel.Program
}

var stringSliceType = reflect.TypeOf([]string{})

func compileCEL(spec models.PredicateSpec) (Predicate, error) {
	if strings.TrimSpace(spec.Expr) == "" {
		return nil, fmt.Errorf("cel predicate requires expr")
	}
	env, err := environment()
	if err != nil {
		return nil, err
	}

	// compile
	ast, issues := env.Compile(spec.Expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}

	if out := ast.OutputType(); !verdictType(out) {
		return nil, fmt.Errorf("rule expression must return bool or list(string), got %v", out)
	}

	// program
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}

	return &celPredicate{expr: spec.Expr, prg: prg}, nil
}

// verdictType accepts bool, list(string) and types only known at runtime
func verdictType(t *cel.Type) bool {
	switch t.Kind() {
	case types.BoolKind, types.DynKind, types.AnyKind, types.TypeParamKind:
		return true
	case types.ListKind:
		params := t.Parameters()
		if len(params) == 0 {
			return true
		}
		switch params[0].Kind() {
		case types.StringKind, types.DynKind, types.AnyKind, types.TypeParamKind:
			return true
		}
	}
	return false
}

func (p *celPredicate) Kind() models.PredicateKind { return models.PredicateCEL }

func (p *celPredicate) Evaluate(facts *models.DocumentFacts) (Result, error) {
	out, _, err := p.prg.Eval(map[string]interface{}{
		"input": factsToMap(facts),
	})
	if err != nil {
		return Result{}, fmt.Errorf("CEL evaluation error: %w", err)
	}

	if compliant, ok := out.Value().(bool); ok {
		if compliant {
			return satisfied(), nil
		}
		return violated(nil), nil
	}

	native, err := out.ConvertToNative(stringSliceType)
	if err != nil {
		return Result{}, fmt.Errorf("rule expression must return bool or list(string), got %v", out.Type())
	}
	offending := native.([]string)
	if len(offending) == 0 {
		return satisfied(), nil
	}
	return violated(offending), nil
}

// factsToMap converts for CEL; field names are iterated in sorted order
func factsToMap(facts *models.DocumentFacts) map[string]interface{} {
	names := make([]string, 0, len(facts.Fields))
	for name := range facts.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(map[string]interface{}, len(names))
	for _, name := range names {
		fields[name] = stringSliceToInterface(facts.Fields[name])
	}

	return map[string]interface{}{
		"document_type": string(facts.DocumentType),
		"raw_text":      facts.RawText,
		"fields":        fields,
	}
}

// stringSliceToInterface
func stringSliceToInterface(s []string) []interface{} {
	result := make([]interface{}, len(s))
	for i, v := range s {
		result[i] = v
	}
	return result
}
