package plan

// Cond is one operator/value condition attached to a field leaf.
type Cond struct {
	Op    Operator
	Value Value
}

// Node is one level of the filter tree. Interior nodes are keyed by
// relation name, leaves by field name. Child order is first-insertion
// order and is never resorted.
type Node struct {
	order    []string
	children map[string]*Node

	// Conds is non-empty only on field leaves. Fields and relations share
	// a namespace in the schema, so a node is never both.
	Conds []Cond
}

// Keys returns the child keys in insertion order.
func (n *Node) Keys() []string {
	return n.order
}

// Child returns the child node for key, or nil.
func (n *Node) Child(key string) *Node {
	return n.children[key]
}

func (n *Node) child(key string) *Node {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	c, ok := n.children[key]
	if !ok {
		c = &Node{}
		n.children[key] = c
		n.order = append(n.order, key)
	}
	return c
}

// Tree is the nested filter structure both compilers emit from. Filters
// sharing a relation prefix merge into the same interior node, so the
// tree's depth-first order is the canonical emission order for both
// grammars - this is what makes the two compilation paths byte-equivalent.
type Tree struct {
	Root *Node
}

// NewTree builds the filter tree from a validated plan's filters, in plan
// order. Each filter contributes one condition at the leaf reached by its
// relation chain and field name.
func NewTree(p *LogicalPlan) *Tree {
	t := &Tree{Root: &Node{}}
	for _, f := range p.Filters {
		n := t.Root
		for _, rel := range f.Relations {
			n = n.child(rel)
		}
		leaf := n.child(f.Field)
		leaf.Conds = append(leaf.Conds, Cond{Op: f.Op, Value: f.Value})
	}
	return t
}

// Walk visits every field leaf depth-first in insertion order, passing the
// relation chain leading to the leaf, the field name, and its conditions.
func (t *Tree) Walk(fn func(relations []string, field string, conds []Cond)) {
	var walk func(n *Node, chain []string)
	walk = func(n *Node, chain []string) {
		for _, key := range n.order {
			c := n.children[key]
			if len(c.Conds) > 0 {
				fn(chain, key, c.Conds)
				continue
			}
			walk(c, append(append([]string(nil), chain...), key))
		}
	}
	walk(t.Root, nil)
}
