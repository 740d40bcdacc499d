// Package querycypher compiles a validated LogicalPlan into the
// property-graph pattern grammar: a chain of MATCH segments using the
// schema's declared graph labels, a WHERE conjunction, and a RETURN
// projection.
//
// Two entry points produce identical text for the same underlying plan:
// Compile works from the plan directly, CompileFromText re-parses the
// document grammar's output first. Both walk the same deterministic filter
// tree, which is what guarantees the equivalence.
package querycypher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/querybridge/querybridge/internal/plan"
	"github.com/querybridge/querybridge/internal/schema"
)

// operatorTokens maps plan operators to pattern-grammar comparison tokens.
var operatorTokens = map[plan.Operator]string{
	plan.OpEq:       "=",
	plan.OpNeq:      "<>",
	plan.OpGt:       ">",
	plan.OpLt:       "<",
	plan.OpGte:      ">=",
	plan.OpLte:      "<=",
	plan.OpIn:       "IN",
	plan.OpContains: "CONTAINS",
}

// Compile renders the plan into pattern query text using the schema's
// relationship labels. The plan must have passed validation; an
// unresolvable relation or root here is reported as a plain error rather
// than silently producing partial text.
func Compile(p *plan.LogicalPlan, s *schema.Schema) (string, error) {
	b, err := newBuilder(p.RootType, s)
	if err != nil {
		return "", err
	}

	tree := plan.NewTree(p)
	tree.Walk(func(relations []string, field string, conds []plan.Cond) {
		if b.err != nil {
			return
		}
		b.addConditions(relations, field, conds)
	})
	if b.err != nil {
		return "", b.err
	}
	return b.build(p.Selects)
}

// builder accumulates MATCH segments and WHERE conditions. Aliases are
// assigned in order of first use, keyed by the relation-chain prefix, so
// repeated traversals of a shared prefix reuse one node alias.
type builder struct {
	s        *schema.Schema
	rootType string

	aliases map[string]aliasEntry // relation chain ("a.b") → alias/type
	counter int
	matches []string
	conds   []string
	err     error
}

type aliasEntry struct {
	alias    string
	typeName string
}

func newBuilder(rootType string, s *schema.Schema) (*builder, error) {
	if s.Lookup(rootType) == nil {
		return nil, fmt.Errorf("unknown root type %q", rootType)
	}
	return &builder{
		s:        s,
		rootType: rootType,
		aliases:  map[string]aliasEntry{"": {alias: "root", typeName: rootType}},
	}, nil
}

func (b *builder) addConditions(relations []string, field string, conds []plan.Cond) {
	entry, err := b.ensurePath(relations)
	if err != nil {
		b.err = err
		return
	}
	for _, c := range conds {
		tok, ok := operatorTokens[c.Op]
		if !ok {
			b.err = fmt.Errorf("unsupported operator %q on %s", c.Op, field)
			return
		}
		lit := renderValue(c.Value)
		if c.Op == plan.OpIn && !strings.HasPrefix(lit, "[") {
			lit = "[" + lit + "]"
		}
		b.conds = append(b.conds, fmt.Sprintf("%s.%s %s %s", entry.alias, property(field), tok, lit))
	}
}

// ensurePath materializes MATCH segments for every prefix of the relation
// chain that has not been traversed yet.
func (b *builder) ensurePath(relations []string) (aliasEntry, error) {
	key := strings.Join(relations, ".")
	if entry, ok := b.aliases[key]; ok {
		return entry, nil
	}

	parent, err := b.ensurePath(relations[:len(relations)-1])
	if err != nil {
		return aliasEntry{}, err
	}

	relName := relations[len(relations)-1]
	parentDef := b.s.Lookup(parent.typeName)
	rel, ok := parentDef.Relations[relName]
	if !ok {
		return aliasEntry{}, fmt.Errorf("type %s declares no relation %q", parent.typeName, relName)
	}

	b.counter++
	entry := aliasEntry{alias: "n" + strconv.Itoa(b.counter), typeName: rel.TargetType}
	b.matches = append(b.matches, fmt.Sprintf("MATCH (%s:%s)-[:%s]->(%s:%s)",
		parent.alias, parent.typeName, rel.GraphLabel, entry.alias, entry.typeName))
	b.aliases[key] = entry
	return entry, nil
}

func (b *builder) build(selects []string) (string, error) {
	clauses := []string{fmt.Sprintf("MATCH (root:%s)", b.rootType)}
	clauses = append(clauses, b.matches...)
	if len(b.conds) > 0 {
		clauses = append(clauses, "WHERE "+strings.Join(b.conds, " AND "))
	}
	clauses = append(clauses, renderReturn(selects))
	return strings.Join(clauses, "\n"), nil
}

func renderReturn(selects []string) string {
	if len(selects) == 0 {
		return "RETURN DISTINCT root"
	}
	parts := make([]string, len(selects))
	for i, sel := range selects {
		parts[i] = fmt.Sprintf("root.%s AS %s", property(sel), sel)
	}
	return "RETURN DISTINCT " + strings.Join(parts, ", ")
}

// identPattern matches property names that need no quoting.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// property renders a field name as a property accessor, backtick-quoting
// names that are not plain identifiers (dotted field names).
func property(field string) string {
	if identPattern.MatchString(field) {
		return field
	}
	return "`" + field + "`"
}

// renderValue renders a literal in pattern-grammar syntax: single-quoted
// strings, bare numbers and booleans, bracketed lists.
func renderValue(v plan.Value) string {
	switch val := v.(type) {
	case plan.String:
		return "'" + strings.ReplaceAll(string(val), "'", `\'`) + "'"
	case plan.Int:
		return strconv.FormatInt(int64(val), 10)
	case plan.Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case plan.Bool:
		return strconv.FormatBool(bool(val))
	case plan.List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = renderValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "''"
	}
}
