// Package filter translates declarative filter input (an operator and a
// value) into conditions on a db.Select.
//
// Every condition a filter adds goes into the condition set named by the
// caller. Conditions within one set are OR'ed and sets are AND'ed, so
// several filters on one set express alternatives while filters on
// different sets narrow the result.
package filter

import (
	"slices"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
)

// Query variable names.
const (
	VarComp  = "comp"
	VarValue = "value"
)

// Filter applies itself to a select.
type Filter interface {
	Apply(sel *db.Select, conditionSetName string, vars map[string]string) (*db.Select, error)
}

// input holds validated filter input.
type input struct {
	op    string
	value string
}

// parse validates vars against the operators a filter supports. Operators
// listed in noValue do not need a value.
func parse(name string, vars map[string]string, ops, noValue []string) (input, error) {
	op, ok := vars[VarComp]
	if !ok {
		return input{}, tablegate.NewMissingQueryVarError(name, VarComp)
	}
	if !slices.Contains(ops, op) && !slices.Contains(noValue, op) {
		return input{}, tablegate.NewInvalidOperatorError(name, op)
	}
	value, ok := vars[VarValue]
	if !ok && !slices.Contains(noValue, op) {
		return input{}, tablegate.NewMissingQueryVarError(name, VarValue)
	}
	return input{op: op, value: value}, nil
}

