package privacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/tablegate/db"
)

// Policy decisions. Rules may wrap them; check with errors.Is.
var (
	// Allow ends evaluation and lets the write run.
	Allow = errors.New("tablegate/privacy: allow rule")

	// Deny ends evaluation and rejects the write.
	Deny = errors.New("tablegate/privacy: deny rule")

	// Skip passes the decision to the next rule.
	Skip = errors.New("tablegate/privacy: skip rule")
)

// Allowf returns a formatted decision wrapping Allow.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted decision wrapping Deny.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted decision wrapping Skip.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op is a set of write operations.
type Op uint

// Write operations.
const (
	OpInsert Op = 1 << iota
	OpUpdate
	OpDelete
)

// Is reports whether o contains any of op.
func (o Op) Is(op Op) bool { return o&op != 0 }

// String returns the operation names joined by "|".
func (o Op) String() string {
	var names []string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpInsert, "insert"}, {OpUpdate, "update"}, {OpDelete, "delete"}} {
		if o.Is(n.op) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Op(%d)", uint(o))
	}
	return strings.Join(names, "|")
}

// Mutation describes one table write under evaluation.
type Mutation struct {
	Table string
	Op    Op
	// Data is the caller's data bag. It is nil for deletes.
	Data map[string]any
	// Where selects the rows of updates and deletes.
	Where []db.Where
}

// Field returns the value written to name.
func (m *Mutation) Field(name string) (any, bool) {
	v, ok := m.Data[name]
	return v, ok
}

// MutationRule decides whether a mutation may run.
type MutationRule interface {
	EvalMutation(context.Context, *Mutation) error
}

// MutationRuleFunc adapts an ordinary function to a MutationRule.
type MutationRuleFunc func(context.Context, *Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m *Mutation) error {
	return f(ctx, m)
}

// Policy is an ordered list of rules.
type Policy []MutationRule

// Eval evaluates the rules in order. It returns nil when a rule allows the
// mutation or every rule skips it, and the deciding error otherwise. A
// decision attached to ctx with DecisionContext short-circuits the rules.
func (p Policy) Eval(ctx context.Context, m *Mutation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation makes a Policy usable as a rule of another policy.
func (p Policy) EvalMutation(ctx context.Context, m *Mutation) error {
	for _, rule := range p {
		switch decision := rule.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return Skip
}

type decisionCtxKey struct{}

// DecisionContext returns a context carrying decision. Policies evaluated
// under it return the decision without running their rules.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext returns the decision attached to ctx. An Allow
// decision is reported as nil.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

// OnMutationOperation evaluates rule only for the given operations and
// skips the others.
func OnMutationOperation(rule MutationRule, op Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		if m.Op.Is(op) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// OnTable evaluates rule only for writes to the named tables.
func OnTable(rule MutationRule, tables ...string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		for _, t := range tables {
			if m.Table == t {
				return rule.EvalMutation(ctx, m)
			}
		}
		return Skip
	})
}

// AlwaysAllowRule allows every mutation.
func AlwaysAllowRule() MutationRule { return fixedDecision{Allow} }

// AlwaysDenyRule denies every mutation.
func AlwaysDenyRule() MutationRule { return fixedDecision{Deny} }

// ContextMutationRule builds a rule from a function of the context alone.
// A nil result skips.
func ContextMutationRule(eval func(context.Context) error) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, _ *Mutation) error {
		return eval(ctx)
	})
}

// AllowMutationOperationRule allows the given operations.
func AllowMutationOperationRule(op Op) MutationRule {
	return OnMutationOperation(fixedDecision{Allow}, op)
}

// DenyMutationOperationRule denies the given operations.
func DenyMutationOperationRule(op Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m *Mutation) error {
		return Denyf("tablegate/privacy: %s on %s is not allowed", m.Op, m.Table)
	})
	return OnMutationOperation(rule, op)
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalMutation(context.Context, *Mutation) error {
	return f.decision
}
