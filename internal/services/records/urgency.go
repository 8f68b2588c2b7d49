package records

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

// DefaultUrgencyExpr marks admissions, critical labs, code blues and any
// event whose description mentions "urgent" or "critical".
const DefaultUrgencyExpr = `event_type in ["ADMISSION", "CRITICAL_LAB", "CODE_BLUE"] ||
description.lowerAscii().contains("urgent") ||
description.lowerAscii().contains("critical")`

// UrgencyRule derives the transient urgent flag from an event's content.
// It is a pure function of (event type, description, codes).
type UrgencyRule struct {
	expr   string
	prog   cel.Program
	logger logpkg.Logger
}

func urgencyEnv() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		cel.Variable("event_type", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("codes", cel.ListType(cel.StringType)),
	)
}

// NewUrgencyRule compiles expr; an empty expr selects DefaultUrgencyExpr.
// The expression must evaluate to a bool.
func NewUrgencyRule(expr string, logger logpkg.Logger) (*UrgencyRule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultUrgencyExpr
	}
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	env, err := urgencyEnv()
	if err != nil {
		return nil, err
	}
	prog, err := compileBool(env, expr)
	if err != nil {
		return nil, err
	}
	return &UrgencyRule{expr: expr, prog: prog, logger: logger.With(logpkg.Component("urgency"))}, nil
}

// Expr returns the compiled expression source.
func (u *UrgencyRule) Expr() string { return u.expr }

// Urgent evaluates the rule. Evaluation errors are logged and treated as
// not urgent.
func (u *UrgencyRule) Urgent(eventType, description string, codes []string) bool {
	if codes == nil {
		codes = []string{}
	}
	out, _, err := u.prog.Eval(map[string]any{
		"event_type":  eventType,
		"description": description,
		"codes":       codes,
	})
	if err != nil {
		u.logger.Warn("urgency evaluation failed", logpkg.Err(err), logpkg.Str("event_type", eventType))
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
