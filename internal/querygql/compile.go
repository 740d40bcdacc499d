// Package querygql compiles a validated LogicalPlan into the document/graph
// query grammar: one top-level operation with a nested where-argument
// object mirroring the plan's join chains, and a selection set.
//
// Compilation is pure structural serialization. Nested keys are emitted in
// first-insertion order and values render canonically, so identical plans
// always produce byte-identical text.
package querygql

import (
	"strings"
	"unicode"

	"github.com/querybridge/querybridge/internal/plan"
)

const indent = "  "

// OperationName derives the top-level operation field from a root type
// name: lower-camel casing plus a fixed pluralization rule. The rule is
// applied identically every time, so the pattern compiler can invert it.
func OperationName(rootType string) string {
	return pluralize(lowerFirst(rootType))
}

// Compile renders the plan into query text. Compile is total over any
// validated plan; callers must validate first.
func Compile(p *plan.LogicalPlan) string {
	var b strings.Builder
	b.WriteString("query {\n")
	b.WriteString(indent + OperationName(p.RootType))

	tree := plan.NewTree(p)
	if len(p.Filters) > 0 {
		b.WriteString("(where: {\n")
		writeNode(&b, tree.Root, 2)
		b.WriteString(indent + "})")
	}

	b.WriteString(" {\n")
	for _, sel := range p.Selects {
		b.WriteString(indent + indent + sel + "\n")
	}
	b.WriteString(indent + "}\n")
	b.WriteString("}")
	return b.String()
}

// writeNode renders an interior filter-tree node, one child per line.
// Field leaves render their conditions inline: name: { eq: "x" }.
func writeNode(b *strings.Builder, n *plan.Node, depth int) {
	pad := strings.Repeat(indent, depth)
	for _, key := range n.Keys() {
		child := n.Child(key)
		if len(child.Conds) > 0 {
			b.WriteString(pad + key + ": " + renderConds(child.Conds) + "\n")
			continue
		}
		b.WriteString(pad + key + ": {\n")
		writeNode(b, child, depth+1)
		b.WriteString(pad + "}\n")
	}
}

func renderConds(conds []plan.Cond) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = string(c.Op) + ": " + plan.Canonical(c.Value)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// pluralize applies the fixed pluralization rule: sibilant endings take
// "es", consonant+y becomes "ies", everything else takes "s".
func pluralize(name string) string {
	switch {
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "z"), strings.HasSuffix(name, "ch"),
		strings.HasSuffix(name, "sh"):
		return name + "es"
	case len(name) > 1 && strings.HasSuffix(name, "y") && !isVowel(rune(name[len(name)-2])):
		return name[:len(name)-1] + "ies"
	default:
		return name + "s"
	}
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouAEIOU", r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
