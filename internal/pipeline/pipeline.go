// Package pipeline wires the query core end to end: plan assembly,
// validation, and both compilations behind a single Process call. This is
// the boundary the CLI and any upstream orchestration talk to.
//
// Process is synchronous, side-effect-free, and all-or-nothing: on any
// error no query text is returned. Validation failures come back as
// *plan.ValidationError carrying the complete violation list so a
// feedback-driven caller can correct every path in one cycle.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/querybridge/querybridge/internal/plan"
	"github.com/querybridge/querybridge/internal/querycypher"
	"github.com/querybridge/querybridge/internal/querygql"
	"github.com/querybridge/querybridge/internal/schema"
)

// Request bundles one compilation request. Mentions are advisory hints
// from upstream entity extraction and never influence the output.
type Request struct {
	RootHint string
	Selects  []string // nil derives the identifying defaults
	Mentions []plan.Mention
	Filters  []plan.RawFilter
}

// Result is the output pair for one validated plan.
type Result struct {
	// ID identifies this compilation for history and diagnostics.
	ID string

	Plan      *plan.LogicalPlan
	Primary   string // document/graph grammar
	Secondary string // property-graph pattern grammar
}

// Process assembles, validates, and compiles a request against the shared
// read-only schema. Independent calls may run concurrently; nothing here
// is mutated after construction.
func Process(s *schema.Schema, pol plan.Policy, req Request) (*Result, error) {
	p, err := plan.Build(s, pol, req.RootHint, req.Selects, req.Mentions, req.Filters)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(p, s); err != nil {
		return nil, err
	}

	primary := querygql.Compile(p)
	secondary, err := querycypher.Compile(p, s)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID:        uuid.NewString(),
		Plan:      p,
		Primary:   primary,
		Secondary: secondary,
	}, nil
}
