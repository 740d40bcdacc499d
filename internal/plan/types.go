package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/querybridge/querybridge/internal/schema"
)

// Operator identifies a filter comparison operator.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
)

// ValidOperators defines the fixed operator token set.
var ValidOperators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpContains: true, OpIn: true,
	OpGt: true, OpLt: true, OpGte: true, OpLte: true,
}

// CompatibleWith reports whether the operator is meaningful for a field of
// the given scalar kind. Equality and membership apply to every kind,
// substring matching to strings only, and ordered comparisons to ordered
// kinds only.
func (op Operator) CompatibleWith(kind schema.FieldKind) bool {
	switch op {
	case OpEq, OpNeq, OpIn:
		return true
	case OpContains:
		return kind == schema.KindString
	case OpGt, OpLt, OpGte, OpLte:
		return kind.Ordered()
	default:
		return false
	}
}

// RawFilter is an externally supplied filter candidate, typically produced
// by the upstream reasoning loop. Path is a '.'-separated field path.
type RawFilter struct {
	Path  string
	Op    Operator
	Value Value
}

// UnmarshalJSON decodes a raw filter from its wire form:
//
//	{"path": "affiliatedFacility.location.city", "op": "eq", "value": "Austin"}
func (f *RawFilter) UnmarshalJSON(data []byte) error {
	var wire struct {
		Path  string          `json:"path"`
		Op    string          `json:"op"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Path == "" {
		return fmt.Errorf("filter is missing a path")
	}
	op := Operator(wire.Op)
	if !ValidOperators[op] {
		return fmt.Errorf("filter %q: unknown operator %q", wire.Path, wire.Op)
	}
	if len(wire.Value) == 0 {
		return fmt.Errorf("filter %q: missing value", wire.Path)
	}
	val, err := ParseValue(wire.Value)
	if err != nil {
		return fmt.Errorf("filter %q: %w", wire.Path, err)
	}
	f.Path = wire.Path
	f.Op = op
	f.Value = val
	return nil
}

// Mention is an advisory named-entity hint from the upstream extraction
// stage. Mentions are accepted by Build but never inspected: they exist so
// callers can thread extraction output through without the core depending
// on it.
type Mention struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Span  [2]int `json:"span"`
}

// Filter is a validated-shape filter inside a LogicalPlan. Relations and
// Field are the split of Path derived against the schema at assembly time,
// so compilers can mirror the join chain without re-walking the schema.
type Filter struct {
	Path      []string // raw '.'-separated segments
	Relations []string // leading segments that named relations
	Field     string   // trailing segments naming the field on the owner type
	Op        Operator
	Value     Value
}

// PathString returns the original dotted path.
func (f Filter) PathString() string {
	return strings.Join(f.Path, ".")
}

// signature is the deduplication key: two raw filters are identical when
// path, operator, and canonical value all compare equal.
func (f Filter) signature() string {
	return f.PathString() + "\x00" + string(f.Op) + "\x00" + Canonical(f.Value)
}

// Join is one relation traversal, derived from a filter's field path.
// Joins are never supplied directly by callers.
type Join struct {
	FromType string
	Relation string
	ToType   string
}

// LogicalPlan is the immutable internal query plan shared by both
// compilers. Joins is the deduplicated, order-preserving union of the join
// chains required by Filters.
type LogicalPlan struct {
	RootType string
	Selects  []string
	Filters  []Filter
	Joins    []Join
}
