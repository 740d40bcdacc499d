package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walkStep struct {
	chain string
	field string
	conds int
}

func collectWalk(t *Tree) []walkStep {
	var steps []walkStep
	t.Walk(func(relations []string, field string, conds []Cond) {
		steps = append(steps, walkStep{
			chain: strings.Join(relations, "."),
			field: field,
			conds: len(conds),
		})
	})
	return steps
}

func TestNewTree_MergesSharedPrefixes(t *testing.T) {
	s := testSchema(t, providerSchema)
	p, err := Build(s, Policy{}, "Provider", nil, nil, []RawFilter{
		{Path: "affiliatedFacility.location.city", Op: OpEq, Value: NewString("Austin")},
		{Path: "name", Op: OpContains, Value: NewString("Chen")},
		{Path: "affiliatedFacility.bedCount", Op: OpGte, Value: Int(100)},
		{Path: "affiliatedFacility.plansAccepted.name", Op: OpEq, Value: NewString("Blue Shield")},
	})
	require.NoError(t, err)

	tree := NewTree(p)

	// Depth-first, insertion order: the affiliatedFacility subtree was
	// opened first, so all of its leaves come before the root-level "name"
	// even though "name" appeared second in plan order.
	want := []walkStep{
		{chain: "affiliatedFacility", field: "location.city", conds: 1},
		{chain: "affiliatedFacility", field: "bedCount", conds: 1},
		{chain: "affiliatedFacility.plansAccepted", field: "name", conds: 1},
		{chain: "", field: "name", conds: 1},
	}
	assert.Equal(t, want, collectWalk(tree))
}

func TestNewTree_MultipleConditionsOneLeaf(t *testing.T) {
	s := testSchema(t, providerSchema)
	p, err := Build(s, Policy{}, "Provider", nil, nil, []RawFilter{
		{Path: "affiliatedFacility.bedCount", Op: OpGte, Value: Int(100)},
		{Path: "affiliatedFacility.bedCount", Op: OpLt, Value: Int(500)},
	})
	require.NoError(t, err)

	tree := NewTree(p)
	steps := collectWalk(tree)
	require.Len(t, steps, 1)
	assert.Equal(t, 2, steps[0].conds)

	leaf := tree.Root.Child("affiliatedFacility").Child("bedCount")
	require.NotNil(t, leaf)
	assert.Equal(t, OpGte, leaf.Conds[0].Op)
	assert.Equal(t, OpLt, leaf.Conds[1].Op)
}

func TestTree_WalkChainIsStable(t *testing.T) {
	s := testSchema(t, providerSchema)
	p, err := Build(s, Policy{}, "Provider", nil, nil, []RawFilter{
		{Path: "affiliatedFacility.location.city", Op: OpEq, Value: NewString("Austin")},
		{Path: "affiliatedFacility.plansAccepted.name", Op: OpEq, Value: NewString("Blue Shield")},
	})
	require.NoError(t, err)

	tree := NewTree(p)
	var chains [][]string
	tree.Walk(func(relations []string, field string, conds []Cond) {
		chains = append(chains, relations)
	})
	require.Len(t, chains, 2)
	// Each callback receives its own chain slice; later visits must not
	// mutate earlier captures.
	assert.Equal(t, []string{"affiliatedFacility"}, chains[0])
	assert.Equal(t, []string{"affiliatedFacility", "plansAccepted"}, chains[1])
}

func TestNewTree_EmptyPlan(t *testing.T) {
	tree := NewTree(&LogicalPlan{RootType: "Provider"})
	assert.Empty(t, collectWalk(tree))
	assert.Empty(t, tree.Root.Keys())
}
