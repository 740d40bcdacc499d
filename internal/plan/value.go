package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface representing a filter literal.
// Only String, Int, Float, Bool, and List implement it. The marker method
// pattern prevents external implementations and enables exhaustive type
// switches in the compilers.
type Value interface {
	filterValue() // Sealed - only types in this package implement it
}

// String is a text literal. Always NFC-normalized so that identical input
// renders to byte-identical query text regardless of the source encoding.
type String string

func (String) filterValue() {}

// Int is an integer literal.
type Int int64

func (Int) filterValue() {}

// Float is a floating-point literal.
type Float float64

func (Float) filterValue() {}

// Bool is a boolean literal.
type Bool bool

func (Bool) filterValue() {}

// List is an ordered set literal, used with the "in" operator.
type List []Value

func (List) filterValue() {}

// NewString creates an NFC-normalized String value.
func NewString(s string) String {
	return String(norm.NFC.String(s))
}

// ParseValue decodes a JSON literal into a Value.
// Numbers without a fractional part decode as Int; null is rejected
// (a filter with no value is meaningless).
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return convertValue(raw)
}

func convertValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid filter value")
	case bool:
		return Bool(val), nil
	case string:
		return NewString(val), nil
	case json.Number:
		s := string(val)
		if !strings.ContainsAny(s, ".eE") {
			n, err := val.Int64()
			if err == nil {
				return Int(n), nil
			}
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number literal: %s", val)
		}
		return Float(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			ev, err := convertValue(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			if _, nested := ev.(List); nested {
				return nil, fmt.Errorf("list[%d]: nested lists are not valid filter values", i)
			}
			list[i] = ev
		}
		return list, nil
	case map[string]any:
		return nil, fmt.Errorf("objects are not valid filter values")
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

// Canonical renders a value into its canonical textual form, used for
// deduplication signatures and for the document grammar's literal syntax.
// Strings are JSON-quoted, numbers use the shortest round-trip form, and
// lists render as "[a, b]" in element order.
func Canonical(v Value) string {
	switch val := v.(type) {
	case String:
		b, _ := json.Marshal(string(val))
		return string(b)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Canonical(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		// Unreachable for sealed values; keeps the signature total.
		return fmt.Sprintf("%v", v)
	}
}
