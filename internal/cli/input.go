package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/querybridge/querybridge/internal/pipeline"
	"github.com/querybridge/querybridge/internal/plan"
)

// CLI error codes.
const (
	ErrCodeGeneric    = "C001" // generic/unknown error
	ErrCodeBadInput   = "C002" // malformed filter input file
	ErrCodeSchemaLoad = "C003" // schema load failed
	ErrCodePolicyLoad = "C004" // policy file load failed
	ErrCodeInvalid    = "C005" // plan validation failed
	ErrCodeHistory    = "C006" // history database error
)

// requestFile is the on-disk request format consumed by compile/validate:
//
//	{
//		"root": "Provider",
//		"select": ["name"],
//		"filters": [{"path": "affiliatedFacility.location.city", "op": "eq", "value": "Austin"}],
//		"mentions": [{"text": "Austin", "label": "GPE", "span": [31, 37]}]
//	}
type requestFile struct {
	Root     string           `json:"root"`
	Select   []string         `json:"select"`
	Filters  []plan.RawFilter `json:"filters"`
	Mentions []plan.Mention   `json:"mentions"`
}

// loadRequest reads and decodes a request file into a pipeline request.
func loadRequest(path string) (pipeline.Request, error) {
	var req pipeline.Request

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read request file: %w", err)
	}
	var rf requestFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return req, fmt.Errorf("parse request file %s: %w", path, err)
	}
	if len(rf.Filters) == 0 {
		return req, fmt.Errorf("request file %s contains no filters", path)
	}

	req.RootHint = rf.Root
	req.Selects = rf.Select
	req.Filters = rf.Filters
	req.Mentions = rf.Mentions
	return req, nil
}
