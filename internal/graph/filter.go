package graph

import (
	"github.com/Knetic/govaluate"

	"github.com/quillforge/sprintscale/internal/model"
)

// Backlog filters let a caller scope a computation to a subset of the
// backlog with a boolean expression over per-task parameters, e.g.
// "owner == 'alice' && duration >= 2". Available parameters: id, owner,
// duration (fractional days), days (whole days), deps (dependency count),
// done.

// FilterFunctionRegistry allows registration of custom functions usable in
// filter expressions.
type FilterFunctionRegistry struct {
	functions map[string]govaluate.ExpressionFunction
}

var globalFilterFuncRegistry = &FilterFunctionRegistry{functions: make(map[string]govaluate.ExpressionFunction)}

// RegisterFilterFunction registers a custom function for filter expressions.
func RegisterFilterFunction(name string, fn govaluate.ExpressionFunction) {
	globalFilterFuncRegistry.functions[name] = fn
}

// whitelistedFunctions returns only registered functions, keeping the
// expression surface closed by default.
func whitelistedFunctions() map[string]govaluate.ExpressionFunction {
	whitelist := map[string]govaluate.ExpressionFunction{}
	for k, v := range globalFilterFuncRegistry.functions {
		whitelist[k] = v
	}
	return whitelist
}

// ValidateFilter checks a filter expression without applying it.
func ValidateFilter(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := govaluate.NewEvaluableExpressionWithFunctions(expr, whitelistedFunctions()); err != nil {
		return model.NewFilterError(expr, err)
	}
	return nil
}

// Filter returns the subset of issues matching the expression, preserving
// input order. An empty expression matches everything. A result that is not
// a boolean, or an evaluation failure, yields a structured filter error.
func Filter(issues []model.RawIssue, expr string) ([]model.RawIssue, error) {
	if expr == "" {
		return issues, nil
	}
	eval, err := govaluate.NewEvaluableExpressionWithFunctions(expr, whitelistedFunctions())
	if err != nil {
		return nil, model.NewFilterError(expr, err)
	}

	var out []model.RawIssue
	for _, iss := range issues {
		dur := Duration(iss)
		params := map[string]interface{}{
			"id":       iss.Key,
			"owner":    iss.Owner,
			"duration": dur,
			"days":     float64(model.WholeDays(dur)),
			"deps":     float64(len(Dependencies(iss, nil))),
			"done":     iss.Done,
		}
		result, err := eval.Evaluate(params)
		if err != nil {
			return nil, model.NewFilterError(expr, err)
		}
		match, ok := result.(bool)
		if !ok {
			return nil, model.NewValidationError("filter", "filter expression must evaluate to a boolean", nil)
		}
		if match {
			out = append(out, iss)
		}
	}
	return out, nil
}
