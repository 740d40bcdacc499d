package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Loader error codes.
const (
	ErrCodeNotFound     = "S001" // schema directory not found
	ErrCodeNoFiles      = "S002" // no CUE files in directory
	ErrCodeLoadFailed   = "S003" // CUE load failed
	ErrCodeBuildFailed  = "S004" // CUE build failed
	ErrCodeNoTypes      = "S005" // schema declares no types
	ErrCodeBadKind      = "S006" // invalid field kind
	ErrCodeBadTarget    = "S007" // relation target type not declared
	ErrCodeBadLabel     = "S008" // invalid graph label token
	ErrCodeNameConflict = "S009" // field/relation name collision
	ErrCodeDecodeFailed = "S010" // malformed type declaration
)

// LoadError represents a fatal error raised while loading a schema
// document. Message may span multiple lines when several declarations are
// invalid; every problem found in one pass is reported together.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// graphLabelPattern matches relationship-type tokens: UPPER_SNAKE.
var graphLabelPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Load reads all CUE files in dir and builds a validated Schema.
//
// The document shape is:
//
//	types: {
//		Provider: {
//			fields: {name: "string", providerId: "string"}
//			relations: {
//				affiliatedFacility: {target: "Facility", label: "PROVIDER_AFFILIATIONS"}
//			}
//		}
//	}
//
// Load is the only I/O-performing entry point of the query core. It runs
// once at startup; any error is fatal to the caller.
func Load(dir string) (*Schema, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	return FromValue(value)
}

// FromValue builds a validated Schema from an already-evaluated CUE value.
// Exposed separately so tests can compile schema documents from strings.
func FromValue(value cue.Value) (*Schema, error) {
	typesVal := value.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoTypes, Message: "schema document has no 'types' declaration"}
	}

	s := &Schema{Types: make(map[string]*TypeDef)}

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("iterating types: %v", err)}
	}
	for iter.Next() {
		td, err := decodeType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.Types[td.Name] = td
		s.typeOrder = append(s.typeOrder, td.Name)
	}

	if len(s.typeOrder) == 0 {
		return nil, &LoadError{Code: ErrCodeNoTypes, Message: "schema declares no types"}
	}

	if probs := checkIntegrity(s); len(probs) > 0 {
		return nil, &LoadError{Code: ErrCodeBadTarget, Message: strings.Join(probs, "\n")}
	}
	return s, nil
}

// decodeType decodes one type declaration, checking kinds, labels, and the
// shared field/relation namespace. All problems within the type are
// reported in a single error.
func decodeType(name string, v cue.Value) (*TypeDef, error) {
	td := &TypeDef{
		Name:      name,
		Fields:    make(map[string]FieldKind),
		Relations: make(map[string]RelationDef),
	}
	var probs problems

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if fieldsVal.Exists() {
		iter, err := fieldsVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("type %s: iterating fields: %v", name, err)}
		}
		for iter.Next() {
			fname := iter.Label()
			kindStr, err := iter.Value().String()
			if err != nil {
				probs.add(ErrCodeDecodeFailed, "type %s: field %s: kind must be a string: %v", name, fname, err)
				continue
			}
			kind := FieldKind(kindStr)
			if !ValidKinds[kind] {
				probs.add(ErrCodeBadKind, "type %s: field %s: invalid kind %q", name, fname, kindStr)
				continue
			}
			td.Fields[fname] = kind
			td.fieldOrder = append(td.fieldOrder, fname)
		}
	}

	relationsVal := v.LookupPath(cue.ParsePath("relations"))
	if relationsVal.Exists() {
		iter, err := relationsVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("type %s: iterating relations: %v", name, err)}
		}
		for iter.Next() {
			rname := iter.Label()
			if _, clash := td.Fields[rname]; clash {
				probs.add(ErrCodeNameConflict, "type %s: name %q declared as both field and relation", name, rname)
				continue
			}
			rel, ok := decodeRelation(name, rname, iter.Value(), &probs)
			if !ok {
				continue
			}
			td.Relations[rname] = rel
			td.relationOrder = append(td.relationOrder, rname)
		}
	}

	if err := probs.err(); err != nil {
		return nil, err
	}
	return td, nil
}

func decodeRelation(typeName, relName string, v cue.Value, probs *problems) (RelationDef, bool) {
	ok := true

	target, err := v.LookupPath(cue.ParsePath("target")).String()
	if err != nil {
		probs.add(ErrCodeBadTarget, "type %s: relation %s: missing or non-string target: %v", typeName, relName, err)
		ok = false
	}
	label, err := v.LookupPath(cue.ParsePath("label")).String()
	if err != nil {
		probs.add(ErrCodeBadLabel, "type %s: relation %s: missing or non-string label: %v", typeName, relName, err)
		ok = false
	} else if !graphLabelPattern.MatchString(label) {
		probs.add(ErrCodeBadLabel, "type %s: relation %s: label %q is not an UPPER_SNAKE token", typeName, relName, label)
		ok = false
	}

	return RelationDef{TargetType: target, GraphLabel: label}, ok
}

// problems accumulates load problems; the first problem's code becomes the
// LoadError code, the message carries every problem found.
type problems struct {
	code string
	msgs []string
}

func (p *problems) add(code, format string, args ...any) {
	if p.code == "" {
		p.code = code
	}
	p.msgs = append(p.msgs, fmt.Sprintf(format, args...))
}

func (p *problems) err() error {
	if len(p.msgs) == 0 {
		return nil
	}
	return &LoadError{Code: p.code, Message: strings.Join(p.msgs, "\n")}
}

// checkIntegrity verifies every relation target names a declared type.
func checkIntegrity(s *Schema) []string {
	var probs []string
	for _, tname := range s.typeOrder {
		td := s.Types[tname]
		for _, rname := range td.relationOrder {
			rel := td.Relations[rname]
			if _, ok := s.Types[rel.TargetType]; !ok {
				probs = append(probs, fmt.Sprintf("type %s: relation %s: target type %q not declared", tname, rname, rel.TargetType))
			}
		}
	}
	return probs
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
