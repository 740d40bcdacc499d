package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querybridge/querybridge/internal/store"
)

const providerSchemaCUE = `
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

const validRequest = `{
	"root": "Provider",
	"filters": [
		{"path": "affiliatedFacility.location.city", "op": "eq", "value": "Austin"},
		{"path": "affiliatedFacility.plansAccepted.name", "op": "eq", "value": "Blue Shield"}
	],
	"mentions": [
		{"text": "Austin", "label": "GPE", "span": [31, 37]}
	]
}`

// writeFixtures lays out a schema directory and a request file for CLI runs.
func writeFixtures(t *testing.T, requestJSON string) (schemaDir, requestPath string) {
	t.Helper()
	dir := t.TempDir()
	schemaDir = filepath.Join(dir, "schema")
	require.NoError(t, os.Mkdir(schemaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "schema.cue"), []byte(providerSchemaCUE), 0o644))

	requestPath = filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(requestPath, []byte(requestJSON), 0o644))
	return schemaDir, requestPath
}

// runCommand executes the root command with args and captures stdout.
func runCommand(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), err
}

func TestCompileCommand_Text(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, validRequest)

	out, err := runCommand(t, "compile", schemaDir, requestPath)
	require.NoError(t, err)

	assert.Contains(t, out, "query {")
	assert.Contains(t, out, `location.city: { eq: "Austin" }`)
	assert.Contains(t, out, "--- pattern ---")
	assert.Contains(t, out, "MATCH (root:Provider)-[:PROVIDER_AFFILIATIONS]->(n1:Facility)")
	assert.Contains(t, out, "RETURN DISTINCT root.providerId AS providerId, root.name AS name")
}

func TestCompileCommand_JSON(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, validRequest)

	out, err := runCommand(t, "--format", "json", "compile", schemaDir, requestPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Provider", data["root_type"])
	assert.Equal(t, float64(2), data["filters"])
	assert.Equal(t, float64(2), data["joins"])
	assert.NotEmpty(t, data["id"])
	assert.Contains(t, data["primary"], "providers(where:")
	assert.Contains(t, data["secondary"], "MATCH (root:Provider)")
}

func TestCompileCommand_ValidationFailureExitCode(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, `{
		"root": "Provider",
		"filters": [{"path": "specialty", "op": "eq", "value": "cardiology"}]
	}`)

	out, err := runCommand(t, "compile", schemaDir, requestPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[UnknownField] specialty")
}

func TestCompileCommand_MissingSchemaDir(t *testing.T) {
	_, requestPath := writeFixtures(t, validRequest)

	out, err := runCommand(t, "compile", filepath.Join(t.TempDir(), "nope"), requestPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeSchemaLoad)
}

func TestCompileCommand_EmptyFilters(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, `{"root": "Provider", "filters": []}`)

	out, err := runCommand(t, "compile", schemaDir, requestPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "contains no filters")
}

func TestCompileCommand_BadOperatorInRequest(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, `{
		"root": "Provider",
		"filters": [{"path": "name", "op": "like", "value": "x"}]
	}`)

	out, err := runCommand(t, "compile", schemaDir, requestPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBadInput)
}

func TestCompileCommand_PolicyFile(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, `{
		"filters": [{"path": "bedCount", "op": "gte", "value": 100}]
	}`)
	policyPath := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("default_root: Facility\nidentifying_fields: [type]\n"), 0o644))

	out, err := runCommand(t, "compile", "--policy", policyPath, schemaDir, requestPath)
	require.NoError(t, err)
	assert.Contains(t, out, "facilities(where:")
	assert.Contains(t, out, "RETURN DISTINCT root.type AS type")
}

func TestCompileCommand_RecordsHistory(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, validRequest)
	dbPath := filepath.Join(t.TempDir(), "history.db")

	_, err := runCommand(t, "compile", "--history", dbPath, schemaDir, requestPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	records, err := st.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Provider", records[0].RootType)
	assert.Equal(t, 2, records[0].FilterCount)
	assert.Contains(t, records[0].PrimaryText, "providers(where:")
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	schemaDir, requestPath := writeFixtures(t, validRequest)

	_, err := runCommand(t, "--format", "xml", "compile", schemaDir, requestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
