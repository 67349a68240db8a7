// ABOUTME: Language-model collaborator contract and its OpenAI-backed client
// ABOUTME: One blocking Complete call per request; no retries, no side effects

package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/2389/toolwarden/internal/errs"
)

// ModelClient is the external language-model collaborator. Complete sends
// one blocking request and returns the model's output as a JSON object.
// Calls are side-effect free; callers own timeouts and may retry.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userText string) (json.RawMessage, error)
}

// OpenAIClient implements ModelClient against an OpenAI-compatible chat
// completions endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds a client for the given model. baseURL may be empty
// for the default endpoint.
func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errs.New(errs.KindConfig, "intent.NewOpenAIClient", "api key is required")
	}
	if model == "" {
		return nil, errs.New(errs.KindConfig, "intent.NewOpenAIClient", "model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete sends a single chat completion and returns the assistant output
// as a JSON object, repairing lightly-malformed model JSON when needed.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userText string) (json.RawMessage, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userText),
		},
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindExternal, "model.Complete", err)
	}
	if len(resp.Choices) != 1 {
		return nil, errs.New(errs.KindExternal, "model.Complete",
			fmt.Sprintf("unexpected choices length: %d", len(resp.Choices)))
	}
	return parseModelJSON(resp.Choices[0].Message.Content)
}

// parseModelJSON extracts a JSON object from raw model output. Strict
// parsing is tried first; fenced or lightly-broken JSON goes through
// jsonrepair before giving up.
func parseModelJSON(text string) (json.RawMessage, error) {
	candidate := text
	if !isJSONObject(candidate) {
		repaired, err := jsonrepair.JSONRepair(text)
		if err != nil || !isJSONObject(repaired) {
			return nil, errs.New(errs.KindExternal, "model.Complete",
				fmt.Sprintf("model output is not a JSON object: %.120s", text))
		}
		candidate = repaired
	}
	return json.RawMessage(candidate), nil
}

// isJSONObject reports whether s parses as a JSON object.
func isJSONObject(s string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}
