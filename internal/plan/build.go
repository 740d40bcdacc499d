package plan

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/querybridge/querybridge/internal/schema"
)

// Policy is the injectable root-resolution and default-selection policy.
// This is the one place domain judgment enters otherwise schema-driven
// logic, so it is configuration rather than a constant.
type Policy struct {
	// DefaultRoot is preferred as the root type when no hint is given and
	// the type is declared in the schema.
	DefaultRoot string

	// IdentifyingFields are tried in order when the caller requests no
	// explicit selection; fields not declared on the root are skipped.
	// Empty means "an id-like field, then a name-like field".
	IdentifyingFields []string
}

// AmbiguousRootError is returned when no root type can be resolved
// deterministically: no usable hint, no configured default present in the
// schema, and no declared type to fall back on.
type AmbiguousRootError struct {
	Hint string
}

func (e *AmbiguousRootError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("cannot resolve root type: hint %q is not declared and the schema offers no default", e.Hint)
	}
	return "cannot resolve root type: no hint given and the schema offers no default"
}

// Build assembles a LogicalPlan from raw filter candidates.
//
// The root type comes from rootHint when it names a declared type,
// otherwise from the policy default, otherwise from the first type declared
// in the schema document. Raw filters are deduplicated by
// (path, operator, value) keeping the first occurrence's position, and each
// retained filter's path is resolved through the relation graph to derive
// its join chain. Traversal depth is bounded by the path's segment count,
// so cyclic relation graphs never cause unbounded walking.
//
// mentions are advisory and do not affect the plan; no branch inspects
// them. Paths that do not resolve are retained untouched so Validate can
// report them precisely.
func Build(s *schema.Schema, pol Policy, rootHint string, selects []string, mentions []Mention, raw []RawFilter) (*LogicalPlan, error) {
	root, err := ResolveRoot(s, pol, rootHint)
	if err != nil {
		return nil, err
	}

	p := &LogicalPlan{RootType: root}

	seen := make(map[string]bool)
	joinSeen := make(map[Join]bool)
	for _, rf := range raw {
		f := Filter{
			Path:  strings.Split(rf.Path, "."),
			Op:    rf.Op,
			Value: rf.Value,
		}
		sig := f.signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true

		res, viol := resolvePath(s, root, f.Path)
		if viol == nil {
			f.Relations = res.relations
			f.Field = res.field
			for _, j := range res.joins {
				if !joinSeen[j] {
					joinSeen[j] = true
					p.Joins = append(p.Joins, j)
				}
			}
		} else {
			// Leave the split empty; Validate reports the exact problem.
			f.Field = f.PathString()
		}
		p.Filters = append(p.Filters, f)
	}

	// nil means "no explicit selection requested"; an empty non-nil slice
	// is an explicit empty selection and is preserved as such.
	if selects != nil {
		p.Selects = append(p.Selects, selects...)
	} else {
		p.Selects = defaultSelects(s, pol, root)
	}
	return p, nil
}

// ResolveRoot applies the root-resolution policy: hint, configured
// default, first declared type, in that order.
func ResolveRoot(s *schema.Schema, pol Policy, rootHint string) (string, error) {
	if rootHint != "" && s.Lookup(rootHint) != nil {
		return rootHint, nil
	}
	if pol.DefaultRoot != "" && s.Lookup(pol.DefaultRoot) != nil {
		return pol.DefaultRoot, nil
	}
	if first, ok := s.FirstType(); ok {
		return first, nil
	}
	return "", &AmbiguousRootError{Hint: rootHint}
}

// defaultSelects derives the identifying selection for the root type.
func defaultSelects(s *schema.Schema, pol Policy, root string) []string {
	td := s.Lookup(root)
	candidates := pol.IdentifyingFields
	if len(candidates) == 0 {
		candidates = []string{lowerFirst(root) + "Id", "id", "name"}
	}

	var selects []string
	picked := make(map[string]bool)
	for _, c := range candidates {
		if _, ok := td.Fields[c]; ok && !picked[c] {
			picked[c] = true
			selects = append(selects, c)
		}
	}
	if len(selects) == 0 && len(td.FieldNames()) > 0 {
		selects = append(selects, td.FieldNames()[0])
	}
	return selects
}

// pathResolution is the result of walking a dotted path from the root.
type pathResolution struct {
	joins     []Join
	relations []string
	field     string
	kind      schema.FieldKind
}

// resolvePath walks segments from root, following relation names greedily.
// The first segment that is not a relation starts the field name; the
// remaining segments joined by '.' must name a declared field on the type
// reached (field names may themselves contain dots).
func resolvePath(s *schema.Schema, root string, segs []string) (pathResolution, *Violation) {
	var res pathResolution
	path := strings.Join(segs, ".")

	cur := s.Lookup(root)
	if cur == nil {
		return res, &Violation{
			Kind:    KindUnknownRoot,
			Path:    path,
			Message: fmt.Sprintf("root type %q is not declared", root),
		}
	}

	i := 0
	for i < len(segs) {
		rel, ok := cur.Relations[segs[i]]
		if !ok {
			break
		}
		res.joins = append(res.joins, Join{FromType: cur.Name, Relation: segs[i], ToType: rel.TargetType})
		res.relations = append(res.relations, segs[i])
		cur = s.Lookup(rel.TargetType)
		i++
	}

	if i == len(segs) {
		return res, &Violation{
			Kind:    KindUnknownField,
			Path:    path,
			Message: fmt.Sprintf("path ends on relation %q without naming a field", segs[len(segs)-1]),
		}
	}

	field := strings.Join(segs[i:], ".")
	kind, ok := cur.Fields[field]
	if !ok {
		return res, &Violation{
			Kind:    KindUnknownField,
			Path:    path,
			Message: fmt.Sprintf("type %s declares no field %q", cur.Name, field),
		}
	}
	res.field = field
	res.kind = kind
	return res, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
