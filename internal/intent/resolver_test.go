// ABOUTME: Tests for the intent resolver pipeline
// ABOUTME: Covers matching, extraction, reconciliation, and model-JSON recovery

package intent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/toolwarden/internal/catalog"
)

// fakeModel replays scripted responses, one per Complete call.
type fakeModel struct {
	responses []string
	calls     int
	userTexts []string
}

func (f *fakeModel) Complete(ctx context.Context, systemPrompt, userText string) (json.RawMessage, error) {
	f.userTexts = append(f.userTexts, userText)
	if f.calls >= len(f.responses) {
		return nil, assert.AnError
	}
	resp := f.responses[f.calls]
	f.calls++
	return parseModelJSON(resp)
}

// testDefs returns the datil-dev catalog definitions.
func testDefs(t *testing.T) []catalog.Definition {
	t.Helper()
	cat, err := catalog.ForNetwork("datil-dev")
	require.NoError(t, err)
	return cat.Definitions()
}

// defByKind finds a definition by kind name.
func defByKind(t *testing.T, defs []catalog.Definition, kind string) catalog.Definition {
	t.Helper()
	for _, d := range defs {
		if d.Kind == kind {
			return d
		}
	}
	t.Fatalf("no definition of kind %s", kind)
	return catalog.Definition{}
}

func TestMatchTool_ConfidentMatch(t *testing.T) {
	defs := testDefs(t)
	transfer := defByKind(t, defs, catalog.KindERC20Transfer)

	model := &fakeModel{responses: []string{
		`{"analysis": "user wants a token transfer", "recommendedToolId": "` + transfer.ToolID + `"}`,
	}}
	r := NewResolver(model)

	def, analysis, err := r.MatchTool(context.Background(), "send 5 USDC to bob", defs)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, transfer.ToolID, def.ToolID)
	assert.NotEmpty(t, analysis)
}

func TestMatchTool_EmptyRecommendationIsNoMatch(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"analysis": "ambiguous request", "recommendedToolId": ""}`,
	}}
	r := NewResolver(model)

	def, _, err := r.MatchTool(context.Background(), "do something", testDefs(t))
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestMatchTool_UnknownIDIsNoMatch(t *testing.T) {
	// An id not in the provided list must be treated exactly like an
	// empty recommendation, never substituted with a default.
	model := &fakeModel{responses: []string{
		`{"analysis": "made something up", "recommendedToolId": "QmHallucinated"}`,
	}}
	r := NewResolver(model)

	def, _, err := r.MatchTool(context.Background(), "send tokens", testDefs(t))
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestExtractParams_StringValues(t *testing.T) {
	defs := testDefs(t)
	transfer := defByKind(t, defs, catalog.KindERC20Transfer)

	model := &fakeModel{responses: []string{
		`{"foundParams": {"amount": "100", "recipient": "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}, "missingParams": ["tokenAddress"]}`,
	}}
	r := NewResolver(model)

	found, missing, err := r.ExtractParams(context.Background(), "send 100 to 0x5aaeb...", transfer)
	require.NoError(t, err)
	assert.Equal(t, "100", found["amount"])
	assert.Equal(t, []string{"tokenAddress"}, missing)

	// The prompt carried the validator-derived hints
	assert.Contains(t, model.userTexts[0], "hint")
}

func TestExtractParams_RejectsNonScalarValues(t *testing.T) {
	defs := testDefs(t)
	transfer := defByKind(t, defs, catalog.KindERC20Transfer)

	model := &fakeModel{responses: []string{
		`{"foundParams": {"amount": {"value": 100}}, "missingParams": []}`,
	}}
	r := NewResolver(model)

	_, _, err := r.ExtractParams(context.Background(), "send 100", transfer)
	assert.Error(t, err)
}

func TestResolve_NoMatchSkipsExtraction(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"analysis": "nothing fits", "recommendedToolId": ""}`,
	}}
	r := NewResolver(model)

	result, err := r.Resolve(context.Background(), "order a pizza", testDefs(t))
	require.NoError(t, err)
	assert.Nil(t, result.Tool)
	assert.Equal(t, 1, model.calls)
}

func TestResolve_ReconciliationMovesInvalidParamsToMissing(t *testing.T) {
	defs := testDefs(t)
	transfer := defByKind(t, defs, catalog.KindERC20Transfer)

	model := &fakeModel{responses: []string{
		`{"analysis": "transfer", "recommendedToolId": "` + transfer.ToolID + `"}`,
		`{"foundParams": {"recipient": "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "amount": "lots"}, "missingParams": ["tokenAddress"]}`,
	}}
	r := NewResolver(model)

	result, err := r.Resolve(context.Background(), "send lots of USDC to bob", defs)
	require.NoError(t, err)
	require.NotNil(t, result.Tool)

	// The invalid amount moved out of foundParams and into missingParams
	assert.Equal(t, map[string]string{
		"recipient": "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
	}, result.FoundParams)
	assert.Equal(t, []string{"amount", "tokenAddress"}, result.MissingParams)

	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, "amount", result.ValidationErrors[0].Param)

	// Never in both foundParams and a validation error
	_, stillFound := result.FoundParams["amount"]
	assert.False(t, stillFound)
}

func TestResolve_MissingDeduplicatedAgainstModelList(t *testing.T) {
	defs := testDefs(t)
	transfer := defByKind(t, defs, catalog.KindERC20Transfer)

	// The model lists amount as missing AND supplies an invalid value.
	model := &fakeModel{responses: []string{
		`{"analysis": "transfer", "recommendedToolId": "` + transfer.ToolID + `"}`,
		`{"foundParams": {"amount": "-1"}, "missingParams": ["amount", "tokenAddress", "recipient"]}`,
	}}
	r := NewResolver(model)

	result, err := r.Resolve(context.Background(), "send tokens", defs)
	require.NoError(t, err)

	// amount appears exactly once in missingParams
	count := 0
	for _, name := range result.MissingParams {
		if name == "amount" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Empty(t, result.FoundParams)
}

func TestResolve_OmittedMissingParamsFallsBackToAllDeclared(t *testing.T) {
	defs := testDefs(t)
	transfer := defByKind(t, defs, catalog.KindERC20Transfer)

	model := &fakeModel{responses: []string{
		`{"analysis": "transfer", "recommendedToolId": "` + transfer.ToolID + `"}`,
		`{"foundParams": {"amount": "100"}}`,
	}}
	r := NewResolver(model)

	result, err := r.Resolve(context.Background(), "send 100 of something", defs)
	require.NoError(t, err)

	assert.Equal(t, "100", result.FoundParams["amount"])
	// All declared params the model did not find are reported missing
	assert.Equal(t, []string{"recipient", "tokenAddress"}, result.MissingParams)
	assert.Empty(t, result.ValidationErrors)
}

func TestParseModelJSON_RepairsFencedOutput(t *testing.T) {
	raw, err := parseModelJSON("```json\n{\"analysis\": \"ok\", \"recommendedToolId\": \"\"}\n```")
	require.NoError(t, err)

	var resp matchResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Empty(t, resp.RecommendedToolID)
}

func TestParseModelJSON_RejectsNonJSON(t *testing.T) {
	_, err := parseModelJSON("I'm sorry, I can't help with that.")
	assert.Error(t, err)
}
