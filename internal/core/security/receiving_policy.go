package security

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"restock/internal/core/apperror"
)

// ReceivingPolicy decides whether a received quantity is acceptable for
// an ordered quantity. Different businesses tune the rule differently
// (some forbid over-receipt entirely, some allow a tolerance band), so
// the rule is a CEL expression over the two quantities rather than a
// hard-coded check.
type ReceivingPolicy interface {
	// CanReceive checks one order line. Quantities are in base units.
	CanReceive(ordered, received float64) error
}

// DefaultReceivingExpr allows over-receipt up to 10% of the ordered
// quantity and never below zero.
const DefaultReceivingExpr = `received >= 0.0 && received <= ordered * 1.1`

// CELPolicy evaluates a compiled CEL expression per order line.
type CELPolicy struct {
	program cel.Program
	expr    string
}

var _ ReceivingPolicy = (*CELPolicy)(nil)

// NewCELPolicy compiles expr into a receiving policy. The expression
// sees two double variables, `ordered` and `received`, and must yield
// a bool.
func NewCELPolicy(expr string) (*CELPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("ordered", cel.DoubleType),
		cel.Variable("received", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile receiving expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("receiving expression must yield bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}

	return &CELPolicy{program: program, expr: expr}, nil
}

func (p *CELPolicy) CanReceive(ordered, received float64) error {
	out, _, err := p.program.Eval(map[string]any{
		"ordered":  ordered,
		"received": received,
	})
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("evaluate receiving policy: %w", err))
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return apperror.NewInternal(fmt.Errorf("receiving policy yielded %T, want bool", out.Value()))
	}
	if !allowed {
		return apperror.NewValidation("received quantity violates receiving policy").
			WithDetail("ordered", ordered).
			WithDetail("received", received).
			WithDetail("rule", p.expr)
	}
	return nil
}

// OpenReceivingPolicy accepts any non-negative quantity. Used when a
// business has no configured rule.
type OpenReceivingPolicy struct{}

var _ ReceivingPolicy = (*OpenReceivingPolicy)(nil)

func (OpenReceivingPolicy) CanReceive(ordered, received float64) error {
	if received < 0 {
		return apperror.NewValidation("received quantity cannot be negative")
	}
	return nil
}
