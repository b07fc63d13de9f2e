package fanout

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
)

// entityFilter wraps a compiled CEL program evaluated per delivered event.
// When disabled, Eval always returns true.
type entityFilter struct {
	prog    cel.Program
	enabled bool
}

func newEntityFilter(expr string) (entityFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return entityFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("type", cel.StringType),
		cel.Variable("entity_kind", cel.StringType),
		cel.Variable("entity_id", cel.StringType),
		cel.Variable("property_id", cel.IntType),
		cel.Variable("actor_id", cel.StringType),
		// Free-form producer metadata for field filtering
		cel.Variable("metadata", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return entityFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return entityFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return entityFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return entityFilter{}, err
	}
	return entityFilter{prog: prog, enabled: true}, nil
}

func (f entityFilter) Eval(ev event.Event) bool {
	if !f.enabled {
		return true
	}
	meta := map[string]any{}
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	out, _, err := f.prog.Eval(map[string]any{
		"type":        ev.Type,
		"entity_kind": ev.EntityKind,
		"entity_id":   ev.EntityID,
		"property_id": ev.PropertyID,
		"actor_id":    ev.ActorID,
		"metadata":    meta,
		"now_ms":      time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
