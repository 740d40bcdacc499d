// Package plan defines the logical query plan and the two pure operations
// that produce and check it: Build assembles a LogicalPlan from raw filter
// candidates by resolving dotted field paths through the schema's relation
// graph, and Validate checks a plan against the schema, reporting every
// violation in one pass.
//
// PLAN SHAPE:
//
// A LogicalPlan holds the root type, the ordered selection fields, the
// deduplicated filters, and the joins derived from the filters' paths:
//
//	[raw filters] → Build → LogicalPlan → Validate → (same plan | ValidationError)
//
// Plans are immutable once built. Validation and compilation only read
// them, so concurrent requests need no coordination.
//
// SEALED VALUES:
//
// Filter literals use the sealed Value interface (marker method pattern).
// Only String, Int, Float, Bool, and List implement it, which keeps type
// switches in the compilers exhaustive and prevents external extensions.
//
// COLLECT-ALL VALIDATION:
//
// Validate never stops at the first problem. The upstream feedback loop
// that proposes filters needs the complete violation list to produce a
// better next attempt, so a single ValidationError carries every offending
// root, join, field path, and operator in plan order.
package plan
