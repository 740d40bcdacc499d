package querycypher

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querybridge/querybridge/internal/plan"
	"github.com/querybridge/querybridge/internal/schema"
)

const providerSchema = `
types: {
	Provider: {
		fields: {providerId: "string", name: "string"}
		relations: {
			affiliatedFacility: {target: "Facility", label: "PROVIDER_AFFILIATIONS"}
		}
	}
	Facility: {
		fields: {"location.city": "string", "location.state": "string", type: "enum", bedCount: "number"}
		relations: {
			plansAccepted: {target: "Plan", label: "FACILITY_PLANS_ACCEPTED"}
		}
	}
	Plan: {
		fields: {name: "string", premium: "number", active: "boolean"}
	}
}
`

func loadSchema(t *testing.T) *schema.Schema {
	t.Helper()
	val := cuecontext.New().CompileString(providerSchema)
	require.NoError(t, val.Err())
	s, err := schema.FromValue(val)
	require.NoError(t, err)
	return s
}

func buildPlan(t *testing.T, s *schema.Schema, raw []plan.RawFilter) *plan.LogicalPlan {
	t.Helper()
	p, err := plan.Build(s, plan.Policy{}, "Provider", nil, nil, raw)
	require.NoError(t, err)
	require.NoError(t, plan.Validate(p, s))
	return p
}

func scenarioFilters() []plan.RawFilter {
	return []plan.RawFilter{
		{Path: "affiliatedFacility.location.city", Op: plan.OpEq, Value: plan.NewString("Austin")},
		{Path: "affiliatedFacility.plansAccepted.name", Op: plan.OpEq, Value: plan.NewString("Blue Shield")},
	}
}

func TestCompile_MatchChain(t *testing.T) {
	s := loadSchema(t)
	p := buildPlan(t, s, scenarioFilters())

	got, err := Compile(p, s)
	require.NoError(t, err)

	want := "MATCH (root:Provider)\n" +
		"MATCH (root:Provider)-[:PROVIDER_AFFILIATIONS]->(n1:Facility)\n" +
		"MATCH (n1:Facility)-[:FACILITY_PLANS_ACCEPTED]->(n2:Plan)\n" +
		"WHERE n1.`location.city` = 'Austin' AND n2.name = 'Blue Shield'\n" +
		"RETURN DISTINCT root.providerId AS providerId, root.name AS name"
	assert.Equal(t, want, got)
}

func TestCompile_SharedPrefixSingleAlias(t *testing.T) {
	s := loadSchema(t)
	p := buildPlan(t, s, []plan.RawFilter{
		{Path: "affiliatedFacility.bedCount", Op: plan.OpGte, Value: plan.Int(100)},
		{Path: "affiliatedFacility.type", Op: plan.OpIn, Value: plan.List{plan.String("HOSPITAL"), plan.String("CLINIC")}},
	})

	got, err := Compile(p, s)
	require.NoError(t, err)

	want := "MATCH (root:Provider)\n" +
		"MATCH (root:Provider)-[:PROVIDER_AFFILIATIONS]->(n1:Facility)\n" +
		"WHERE n1.bedCount >= 100 AND n1.type IN ['HOSPITAL', 'CLINIC']\n" +
		"RETURN DISTINCT root.providerId AS providerId, root.name AS name"
	assert.Equal(t, want, got)
}

func TestCompile_NoFilters(t *testing.T) {
	s := loadSchema(t)
	p := buildPlan(t, s, nil)

	got, err := Compile(p, s)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (root:Provider)\nRETURN DISTINCT root.providerId AS providerId, root.name AS name", got)
}

func TestCompile_EmptySelectsReturnRoot(t *testing.T) {
	s := loadSchema(t)
	p, err := plan.Build(s, plan.Policy{}, "Provider", []string{}, nil, nil)
	require.NoError(t, err)

	got, err := Compile(p, s)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (root:Provider)\nRETURN DISTINCT root", got)
}

func TestCompile_InWrapsScalar(t *testing.T) {
	s := loadSchema(t)
	p := buildPlan(t, s, []plan.RawFilter{
		{Path: "affiliatedFacility.type", Op: plan.OpIn, Value: plan.NewString("HOSPITAL")},
	})

	got, err := Compile(p, s)
	require.NoError(t, err)
	assert.Contains(t, got, "n1.type IN ['HOSPITAL']")
}

func TestCompile_EscapesSingleQuotes(t *testing.T) {
	s := loadSchema(t)
	p := buildPlan(t, s, []plan.RawFilter{
		{Path: "name", Op: plan.OpEq, Value: plan.NewString("O'Brien")},
	})

	got, err := Compile(p, s)
	require.NoError(t, err)
	assert.Contains(t, got, `root.name = 'O\'Brien'`)
}

func TestCompile_UnknownRoot(t *testing.T) {
	s := loadSchema(t)
	_, err := Compile(&plan.LogicalPlan{RootType: "Clinic"}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown root type "Clinic"`)
}

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name string
		v    plan.Value
		want string
	}{
		{name: "string", v: plan.String("Austin"), want: "'Austin'"},
		{name: "int", v: plan.Int(42), want: "42"},
		{name: "float", v: plan.Float(99.5), want: "99.5"},
		{name: "bool", v: plan.Bool(false), want: "false"},
		{name: "list", v: plan.List{plan.String("a"), plan.Int(1)}, want: "['a', 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderValue(tt.v))
		})
	}
}

func TestProperty_QuotesDottedNames(t *testing.T) {
	assert.Equal(t, "bedCount", property("bedCount"))
	assert.Equal(t, "`location.city`", property("location.city"))
	assert.Equal(t, "_internal", property("_internal"))
}
