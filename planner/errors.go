package planner

import (
	"fmt"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/shape"
)

// ConfigError reports a misconfigured descriptor tree or a misuse of
// the planning entry points. It always identifies the offending shape
// and, when applicable, the field and relation path, so the mistake
// can be located without tracing the walk.
type ConfigError struct {
	Shape  string
	Field  string
	Path   string
	Reason string

	cause error
}

func (e *ConfigError) Error() string {
	msg := "prefetch config: " + e.Reason
	if e.Shape != "" {
		msg += fmt.Sprintf(" (shape %s", e.Shape)
		if e.Field != "" {
			msg += ", field " + e.Field
		}
		if e.Path != "" {
			msg += ", path " + e.Path
		}
		msg += ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.cause }

// Keep messages stable: tests assert on them.

func errSatelliteMissingShape(n *shape.Node, rel relpath.Rel) *ConfigError {
	return &ConfigError{
		Shape:  n.DisplayName(),
		Path:   rel.Through,
		Reason: "satellite link has no shape attached",
	}
}

func errBadSource(n *shape.Node, f shape.Field) *ConfigError {
	return &ConfigError{
		Shape:  n.DisplayName(),
		Field:  f.Name,
		Path:   f.Source,
		Reason: fmt.Sprintf("source %q is not a navigable relation on model %s", f.Source, n.Model.Name),
	}
}

func errNotBatchable(n *shape.Node, cause error) *ConfigError {
	return &ConfigError{
		Shape:  n.DisplayName(),
		Reason: "cannot batch against a bare record; did you mean a Many field or a collection instance",
		cause:  cause,
	}
}

func errNilRenderer(n *shape.Node) *ConfigError {
	return &ConfigError{
		Shape:  n.DisplayName(),
		Reason: "no renderer configured",
	}
}

func errUnsupportedInstance(n *shape.Node, instance any) *ConfigError {
	return &ConfigError{
		Shape:  n.DisplayName(),
		Reason: fmt.Sprintf("cannot plan against %T; expected a store.Query, *store.Collection, []*store.Record or *store.Record", instance),
	}
}
