// ABOUTME: Two-stage intent resolution: tool matching, then parameter extraction
// ABOUTME: Reconciles model output against the tool's own parameter validator

package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/2389/toolwarden/internal/catalog"
	"github.com/2389/toolwarden/internal/errs"
)

// Result is the ephemeral outcome of resolving one natural-language intent.
// A parameter is never left in FoundParams while also appearing in a
// validation error.
type Result struct {
	Analysis         json.RawMessage
	Tool             *catalog.Definition
	FoundParams      map[string]string
	MissingParams    []string
	ValidationErrors []catalog.ValidationError
}

// Resolver maps free-form intent text to one permitted tool plus validated
// parameters, using the language-model collaborator twice. It holds no
// state between calls and performs no automatic retries.
type Resolver struct {
	model  ModelClient
	logger *slog.Logger
}

// NewResolver builds a resolver over a model client.
func NewResolver(model ModelClient) *Resolver {
	return &Resolver{
		model:  model,
		logger: slog.Default().With("component", "intent"),
	}
}

const matchSystemPrompt = `You select at most one tool for a user's request.
You are given a JSON list of available tools, each with "toolId", "name" and
"description". Respond with a JSON object:
  {"analysis": "<your reasoning>", "recommendedToolId": "<toolId or empty string>"}
Recommend a tool only when you are completely certain it fulfills the
request. When in any doubt, return an empty recommendedToolId. Never invent
a toolId that is not in the list.`

const extractSystemPrompt = `You extract parameter values for one tool from a
user's request. You are given a JSON list of the tool's parameters, each with
"name", "description" and an optional "hint" describing the expected format.
Respond with a JSON object:
  {"foundParams": {"<name>": "<value>", ...}, "missingParams": ["<name>", ...]}
Every value must be a string, copied or minimally normalized from the
request. Never guess a value that is not in the request; list those
parameters in missingParams instead.`

// matchResponse is the model's answer to the matching stage.
type matchResponse struct {
	Analysis          json.RawMessage `json:"analysis"`
	RecommendedToolID string          `json:"recommendedToolId"`
}

// extractResponse is the model's answer to the extraction stage.
// MissingParams distinguishes "omitted entirely" (nil) from "empty".
type extractResponse struct {
	FoundParams   map[string]any `json:"foundParams"`
	MissingParams []string       `json:"missingParams"`
}

// MatchTool asks the model for at most one confident recommendation among
// the candidates. An empty recommendation and an unknown tool id are both
// "no match"; the resolver never substitutes a default tool.
func (r *Resolver) MatchTool(ctx context.Context, intentText string, candidates []catalog.Definition) (*catalog.Definition, json.RawMessage, error) {
	type candidateJSON struct {
		ToolID      string `json:"toolId"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	list := make([]candidateJSON, len(candidates))
	for i, c := range candidates {
		list[i] = candidateJSON{ToolID: c.ToolID, Name: c.Name, Description: c.Description}
	}
	listJSON, err := json.Marshal(list)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindExternal, "intent.MatchTool", err)
	}

	userText := fmt.Sprintf("Available tools:\n%s\n\nRequest:\n%s", listJSON, intentText)
	raw, err := r.model.Complete(ctx, matchSystemPrompt, userText)
	if err != nil {
		return nil, nil, err
	}

	var resp matchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, errs.Wrap(errs.KindExternal, "intent.MatchTool", err)
	}

	id := strings.TrimSpace(resp.RecommendedToolID)
	if id == "" {
		return nil, resp.Analysis, nil
	}
	for i := range candidates {
		if candidates[i].ToolID == id {
			return &candidates[i], resp.Analysis, nil
		}
	}
	// An id outside the provided list is treated exactly like "no match"
	r.logger.Warn("model recommended a tool outside the candidate list", "tool_id", id)
	return nil, resp.Analysis, nil
}

// ExtractParams asks the model for the matched tool's parameter values from
// the same intent text. All extracted values are strings; extraction never
// infers types. The missing slice is nil only when the model omitted
// missingParams entirely.
func (r *Resolver) ExtractParams(ctx context.Context, intentText string, def catalog.Definition) (map[string]string, []string, error) {
	type paramJSON struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Hint        string `json:"hint,omitempty"`
	}
	hints := catalog.ParamHints(def)
	params := make([]paramJSON, len(def.Params))
	for i, p := range def.Params {
		params[i] = paramJSON{Name: p.Name, Description: p.Description, Hint: hints[p.Name]}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindExternal, "intent.ExtractParams", err)
	}

	userText := fmt.Sprintf("Tool: %s\nParameters:\n%s\n\nRequest:\n%s", def.Name, paramsJSON, intentText)
	raw, err := r.model.Complete(ctx, extractSystemPrompt, userText)
	if err != nil {
		return nil, nil, err
	}

	var resp extractResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, errs.Wrap(errs.KindExternal, "intent.ExtractParams", err)
	}

	found := make(map[string]string, len(resp.FoundParams))
	for name, value := range resp.FoundParams {
		s, err := stringValue(value)
		if err != nil {
			return nil, nil, errs.New(errs.KindExternal, "intent.ExtractParams",
				fmt.Sprintf("param %s: %v", name, err))
		}
		found[name] = s
	}
	return found, resp.MissingParams, nil
}

// Resolve runs the full pipeline: match, extract, then reconcile against
// the tool's own validator.
func (r *Resolver) Resolve(ctx context.Context, intentText string, permitted []catalog.Definition) (Result, error) {
	def, analysis, err := r.MatchTool(ctx, intentText, permitted)
	if err != nil {
		return Result{}, err
	}
	if def == nil {
		return Result{Analysis: analysis}, nil
	}

	found, missing, err := r.ExtractParams(ctx, intentText, *def)
	if err != nil {
		return Result{}, err
	}

	result := reconcile(*def, found, missing)
	result.Analysis = analysis
	result.Tool = def

	r.logger.Info("resolved intent",
		"tool_id", def.ToolID,
		"found", len(result.FoundParams),
		"missing", len(result.MissingParams),
		"validation_errors", len(result.ValidationErrors),
	)
	return result, nil
}

// reconcile runs the tool's validator over the extracted parameters and
// repartitions: any parameter named in a validation failure moves from
// found to missing, deduplicated against the model's own missing list. The
// original failures are preserved verbatim.
func reconcile(def catalog.Definition, found map[string]string, missing []string) Result {
	if found == nil {
		found = map[string]string{}
	}
	// A model that omitted missingParams entirely is treated as declaring
	// every parameter it did not find as missing.
	if missing == nil {
		for _, p := range def.Params {
			if _, ok := found[p.Name]; !ok {
				missing = append(missing, p.Name)
			}
		}
	}

	var failures []catalog.ValidationError
	if def.Validator != nil {
		failures = def.Validator.Validate(found)
	}

	missingSet := make(map[string]bool, len(missing))
	for _, name := range missing {
		missingSet[name] = true
	}
	for _, f := range failures {
		delete(found, f.Param)
		missingSet[f.Param] = true
	}

	dedupedMissing := make([]string, 0, len(missingSet))
	for name := range missingSet {
		dedupedMissing = append(dedupedMissing, name)
	}
	sort.Strings(dedupedMissing)

	return Result{
		FoundParams:      found,
		MissingParams:    dedupedMissing,
		ValidationErrors: failures,
	}
}

// stringValue coerces a scalar JSON value to its string form. Objects and
// arrays are rejected; extraction only deals in strings.
func stringValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", x), ".0"), nil
	case bool:
		return fmt.Sprintf("%t", x), nil
	default:
		return "", fmt.Errorf("value is not a scalar (%T)", v)
	}
}
