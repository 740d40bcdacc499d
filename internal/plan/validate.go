package plan

import (
	"fmt"
	"strings"

	"github.com/querybridge/querybridge/internal/schema"
)

// Violation kinds.
const (
	KindUnknownRoot          = "UnknownRoot"
	KindUnknownRelation      = "UnknownRelation"
	KindUnknownField         = "UnknownField"
	KindTypeMismatchOperator = "TypeMismatchOperator"
)

// Violation describes a single validation failure with the exact path that
// caused it.
type Violation struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Kind, v.Path, v.Message)
}

// ValidationError aggregates every violation found in one validation pass.
// The upstream feedback loop needs the complete list, never just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("plan validation failed with %d violation(s):\n%s",
		len(e.Violations), strings.Join(lines, "\n"))
}

// Validate checks every root, join, and filter of the plan against the
// schema. It is pure: the plan is only read, never modified. All checks
// run; on any violation the returned error is a *ValidationError carrying
// the full list. A nil return means the plan is safe to compile without
// further checking.
func Validate(p *LogicalPlan, s *schema.Schema) error {
	var viols []Violation

	rootKnown := s.Lookup(p.RootType) != nil
	if !rootKnown {
		viols = append(viols, Violation{
			Kind:    KindUnknownRoot,
			Path:    p.RootType,
			Message: fmt.Sprintf("root type %q is not declared in the schema", p.RootType),
		})
	}

	for _, j := range p.Joins {
		from := s.Lookup(j.FromType)
		if from == nil {
			viols = append(viols, Violation{
				Kind:    KindUnknownRoot,
				Path:    j.FromType + "." + j.Relation,
				Message: fmt.Sprintf("join source type %q is not declared", j.FromType),
			})
			continue
		}
		rel, ok := from.Relations[j.Relation]
		if !ok {
			viols = append(viols, Violation{
				Kind:    KindUnknownRelation,
				Path:    j.FromType + "." + j.Relation,
				Message: fmt.Sprintf("type %s declares no relation %q", j.FromType, j.Relation),
			})
			continue
		}
		if rel.TargetType != j.ToType {
			viols = append(viols, Violation{
				Kind:    KindUnknownRelation,
				Path:    j.FromType + "." + j.Relation,
				Message: fmt.Sprintf("relation %q targets %s, not %s", j.Relation, rel.TargetType, j.ToType),
			})
		}
	}

	// Field paths can only be walked from a known root; when the root is
	// unknown that single violation already explains every filter.
	if rootKnown {
		for _, f := range p.Filters {
			res, viol := resolvePath(s, p.RootType, f.Path)
			if viol != nil {
				viols = append(viols, *viol)
				continue
			}
			if !f.Op.CompatibleWith(res.kind) {
				viols = append(viols, Violation{
					Kind:    KindTypeMismatchOperator,
					Path:    f.PathString(),
					Message: fmt.Sprintf("operator %q is not valid for %s field %q", f.Op, res.kind, res.field),
				})
			}
		}
	}

	if len(viols) > 0 {
		return &ValidationError{Violations: viols}
	}
	return nil
}
