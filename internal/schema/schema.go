package schema

// FieldKind identifies the scalar kind of a declared field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindDate    FieldKind = "date"
	KindEnum    FieldKind = "enum"
)

// ValidKinds defines the allowed field kind names in schema documents.
var ValidKinds = map[FieldKind]bool{
	KindString:  true,
	KindNumber:  true,
	KindBoolean: true,
	KindDate:    true,
	KindEnum:    true,
}

// Ordered reports whether values of the kind have a total order, making
// gt/lt/gte/lte comparisons meaningful.
func (k FieldKind) Ordered() bool {
	return k == KindNumber || k == KindDate
}

// RelationDef describes an outgoing relation from one type to another.
// GraphLabel is the literal relationship-type token used by the pattern
// grammar (UPPER_SNAKE, validated at load time).
type RelationDef struct {
	TargetType string
	GraphLabel string
}

// TypeDef holds the declared fields and relations of a single type.
// Field names and relation names share one namespace within the type.
type TypeDef struct {
	Name      string
	Fields    map[string]FieldKind
	Relations map[string]RelationDef

	// fieldOrder and relationOrder preserve declaration order for
	// deterministic default-select derivation.
	fieldOrder    []string
	relationOrder []string
}

// FieldNames returns the field names in declaration order.
func (t *TypeDef) FieldNames() []string {
	return t.fieldOrder
}

// RelationNames returns the relation names in declaration order.
func (t *TypeDef) RelationNames() []string {
	return t.relationOrder
}

// Schema is the process-wide, read-only type graph. Types preserves lookup
// by name; declaration order is kept separately for the default-root policy.
type Schema struct {
	Types map[string]*TypeDef

	typeOrder []string
}

// TypeNames returns all type names in declaration order.
func (s *Schema) TypeNames() []string {
	return s.typeOrder
}

// Lookup returns the TypeDef for name, or nil if the type is not declared.
func (s *Schema) Lookup(name string) *TypeDef {
	return s.Types[name]
}

// FirstType returns the first type declared in the schema document.
// The loader rejects empty schemas, so this never fails for loaded schemas.
func (s *Schema) FirstType() (string, bool) {
	if len(s.typeOrder) == 0 {
		return "", false
	}
	return s.typeOrder[0], true
}
