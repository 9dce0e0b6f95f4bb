// Package filter selects task names with CEL expressions over the variable name.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// costLimit bounds the evaluation cost of a single expression.
const costLimit = 1000000

// Options are the task listing filters. Every non-empty option must hold.
type Options struct {
	StartsWith string
	Contains   string
	EndsWith   string
	// Expr is an arbitrary CEL boolean expression over name.
	Expr string
}

// Expression renders the options as a single CEL expression. With no options
// set it is "true".
func (o Options) Expression() string {
	var clauses []string
	if o.StartsWith != "" {
		clauses = append(clauses, fmt.Sprintf("name.startsWith(%s)", strconv.Quote(o.StartsWith)))
	}
	if o.Contains != "" {
		clauses = append(clauses, fmt.Sprintf("name.contains(%s)", strconv.Quote(o.Contains)))
	}
	if o.EndsWith != "" {
		clauses = append(clauses, fmt.Sprintf("name.endsWith(%s)", strconv.Quote(o.EndsWith)))
	}
	if expr := strings.TrimSpace(o.Expr); expr != "" {
		clauses = append(clauses, "("+expr+")")
	}
	if len(clauses) == 0 {
		return "true"
	}
	return strings.Join(clauses, " && ")
}

// Filter is a compiled name predicate.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile builds a Filter from a CEL expression that must evaluate to a bool.
func Compile(expr string) (*Filter, error) {
	env, err := cel.NewEnv(cel.Variable("name", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %v", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %v", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must return boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %v", err)
	}
	return &Filter{expr: expr, program: program}, nil
}

// New compiles the expression for opts.
func New(opts Options) (*Filter, error) {
	return Compile(opts.Expression())
}

func (f *Filter) String() string {
	return f.expr
}

// Match reports whether name satisfies the filter.
func (f *Filter) Match(name string) (bool, error) {
	result, _, err := f.program.Eval(map[string]interface{}{"name": name})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %v", err)
	}
	if result.Type() != types.BoolType {
		return false, fmt.Errorf("CEL expression must return boolean, got %v", result.Type())
	}
	return result.Value().(bool), nil
}

// Apply returns the names that match, in their original order.
func (f *Filter) Apply(names []string) ([]string, error) {
	matched := make([]string, 0, len(names))
	for _, name := range names {
		ok, err := f.Match(name)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, name)
		}
	}
	return matched, nil
}
