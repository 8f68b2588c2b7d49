package records

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"github.com/rzbill/medtrail/internal/storeerr"
)

// compileBool parses, type-checks and plans expr, requiring a bool result.
func compileBool(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", checked.OutputType())
	}
	return env.Program(checked)
}

// eventFilter is an optional CEL predicate applied to listed events. When
// disabled, Match always returns true.
type eventFilter struct {
	prog    cel.Program
	enabled bool
}

func newEventFilter(expr string) (eventFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return eventFilter{}, nil
	}
	env, err := cel.NewEnv(
		ext.Strings(),
		cel.Variable("event_type", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("codes", cel.ListType(cel.StringType)),
		cel.Variable("created_by", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("urgent", cel.BoolType),
	)
	if err != nil {
		return eventFilter{}, err
	}
	prog, err := compileBool(env, expr)
	if err != nil {
		return eventFilter{}, storeerr.InvalidArgument("filter: %v", err)
	}
	return eventFilter{prog: prog, enabled: true}, nil
}

// Match reports whether v passes the filter. Runtime errors exclude the event.
func (f eventFilter) Match(v EventView) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"event_type":  v.EventType,
		"description": v.Description,
		"codes":       v.Codes,
		"created_by":  v.CreatedBy,
		"ts_ms":       v.Timestamp.UnixMilli(),
		"urgent":      v.Urgent,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
