package querycypher

import (
	"fmt"
	"strings"

	"github.com/querybridge/querybridge/internal/plan"
	"github.com/querybridge/querybridge/internal/querygql"
	"github.com/querybridge/querybridge/internal/schema"
)

// ParseError reports malformed or truncated document-grammar text, with
// the byte offset of the problem. No partial pattern text is ever produced
// alongside one.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

// CompileFromText compiles document-grammar query text (as produced by
// querygql.Compile) into pattern query text. It reconstructs the nested
// argument tree by matching balanced delimiter pairs, extracts the
// (path, operator, value) triples and the selection list, rebuilds the
// plan, and proceeds exactly as Compile does. For text produced from the
// same plan, the output is byte-identical to Compile's.
func CompileFromText(text string, s *schema.Schema) (string, error) {
	p := &parser{src: text}

	if err := p.keyword("query"); err != nil {
		return "", err
	}
	if err := p.expect('{'); err != nil {
		return "", err
	}
	opName, err := p.ident()
	if err != nil {
		return "", err
	}

	var filters []plan.RawFilter
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		if err := p.keyword("where"); err != nil {
			return "", err
		}
		if err := p.expect(':'); err != nil {
			return "", err
		}
		if err := p.expect('{'); err != nil {
			return "", err
		}
		if filters, err = p.object(nil, nil); err != nil {
			return "", err
		}
		if err := p.expect(')'); err != nil {
			return "", err
		}
	}

	if err := p.expect('{'); err != nil {
		return "", err
	}
	selects, err := p.selection()
	if err != nil {
		return "", err
	}
	if err := p.expect('}'); err != nil {
		return "", err
	}

	rootType, err := inferRootType(opName, s)
	if err != nil {
		return "", err
	}

	rebuilt, err := plan.Build(s, plan.Policy{}, rootType, selects, nil, filters)
	if err != nil {
		return "", err
	}
	if err := plan.Validate(rebuilt, s); err != nil {
		return "", err
	}
	return Compile(rebuilt, s)
}

// inferRootType inverts the operation-name derivation against the declared
// types; a lowercase prefix match covers hand-written operation names.
func inferRootType(opName string, s *schema.Schema) (string, error) {
	for _, t := range s.TypeNames() {
		if querygql.OperationName(t) == opName {
			return t, nil
		}
	}
	for _, t := range s.TypeNames() {
		if strings.HasPrefix(strings.ToLower(opName), strings.ToLower(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("operation %q matches no declared type", opName)
}

// parser is a cursor over document-grammar text.
type parser struct {
	src string
	pos int
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', ',':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) fail(format string, args ...any) *ParseError {
	return &ParseError{Offset: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(ch byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return p.fail("unexpected end of input, want %q", string(ch))
	}
	if p.src[p.pos] != ch {
		return p.fail("unexpected %q, want %q", string(p.src[p.pos]), string(ch))
	}
	p.pos++
	return nil
}

func (p *parser) keyword(kw string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], kw) {
		return p.fail("expected %q", kw)
	}
	p.pos += len(kw)
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("expected an identifier")
	}
	return p.src[start:p.pos], nil
}

// object parses one balanced argument object (the opening brace already
// consumed), appending a filter for every operator/literal leaf entry.
// path holds the keys leading into this object.
func (p *parser) object(path []string, filters []plan.RawFilter) ([]plan.RawFilter, error) {
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.fail("unexpected end of input inside argument object")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return filters, nil
		}

		key, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.peek() == '{' {
			p.pos++
			if filters, err = p.object(append(path, key), filters); err != nil {
				return nil, err
			}
			continue
		}

		// Literal entry: the key is an operator, the enclosing key the field.
		op := plan.Operator(key)
		if !plan.ValidOperators[op] {
			return nil, p.fail("unknown operator %q", key)
		}
		if len(path) == 0 {
			return nil, p.fail("operator %q outside a field object", key)
		}
		val, err := p.literal()
		if err != nil {
			return nil, err
		}
		filters = append(filters, plan.RawFilter{
			Path:  strings.Join(path, "."),
			Op:    op,
			Value: val,
		})
	}
}

// literal parses one canonical literal: a JSON-quoted string, a bracketed
// list, a number, or a boolean.
func (p *parser) literal() (plan.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.fail("unexpected end of input, want a literal")
	}

	start := p.pos
	switch p.src[p.pos] {
	case '"':
		if err := p.scanString(); err != nil {
			return nil, err
		}
	case '[':
		if err := p.scanList(); err != nil {
			return nil, err
		}
	default:
		for p.pos < len(p.src) && !strings.ContainsRune(" \t\n\r,}", rune(p.src[p.pos])) {
			p.pos++
		}
		if p.pos == start {
			return nil, p.fail("expected a literal")
		}
	}

	val, err := plan.ParseValue([]byte(p.src[start:p.pos]))
	if err != nil {
		return nil, &ParseError{Offset: start, Message: fmt.Sprintf("invalid literal: %v", err)}
	}
	return val, nil
}

// scanString advances past a quoted string, honoring backslash escapes.
func (p *parser) scanString() error {
	p.pos++ // opening quote
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			p.pos++
			return nil
		default:
			p.pos++
		}
	}
	return p.fail("unterminated string literal")
}

// scanList advances past a balanced bracket pair, skipping over strings.
func (p *parser) scanList() error {
	depth := 0
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '[':
			depth++
			p.pos++
		case ']':
			depth--
			p.pos++
			if depth == 0 {
				return nil
			}
		case '"':
			if err := p.scanString(); err != nil {
				return err
			}
		default:
			p.pos++
		}
	}
	return p.fail("unterminated list literal")
}

// selection parses the selection set: identifiers up to the closing brace.
func (p *parser) selection() ([]string, error) {
	selects := []string{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.fail("unexpected end of input inside selection set")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return selects, nil
		}
		sel, err := p.ident()
		if err != nil {
			return nil, err
		}
		selects = append(selects, sel)
	}
}
