// Package openai implements the model gateway against any OpenAI-compatible
// chat completions API.
package openai

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/algoprep/algoprep-api/internal/adapter/ai"
	"github.com/algoprep/algoprep-api/internal/adapter/ai/tokencount"
	"github.com/algoprep/algoprep-api/internal/adapter/observability"
	"github.com/algoprep/algoprep-api/internal/config"
	"github.com/algoprep/algoprep-api/internal/domain"
)

// Client implements domain.ModelClient. One provider call per invocation; no
// retries at this layer, the orchestrator degrades on failure instead.
type Client struct {
	api              *openai.Client
	model            string
	maxTokens        int
	promptTokenLimit int
	counter          *tokencount.Counter
}

// New constructs a gateway client from configuration.
func New(cfg config.Config) *Client {
	oc := openai.DefaultConfig(cfg.ModelAPIKey)
	oc.BaseURL = cfg.ModelBaseURL
	oc.HTTPClient = &http.Client{
		Timeout:   cfg.ModelTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return &Client{
		api:              openai.NewClientWithConfig(oc),
		model:            cfg.ModelName,
		maxTokens:        cfg.ModelMaxTokens,
		promptTokenLimit: cfg.PromptTokenLimit,
		counter:          tokencount.NewCounter(),
	}
}

// Complete builds the task prompt, sends it, and returns the first choice's
// raw text. Oversize prompts are rejected before the provider is contacted;
// transport and provider failures map to domain.ErrUpstreamUnavailable.
func (c *Client) Complete(ctx domain.Context, task domain.TaskKind, payload domain.TaskPayload) (string, error) {
	systemPrompt, userPrompt := ai.BuildPrompt(task, payload)
	if c.promptTokenLimit > 0 {
		tokens := c.counter.Count(c.model, systemPrompt+userPrompt)
		if tokens > c.promptTokenLimit {
			return "", fmt.Errorf("%w: prompt is %d tokens, limit %d", domain.ErrInvalidArgument, tokens, c.promptTokenLimit)
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	// Reasoning models reject max_tokens in favor of max_completion_tokens.
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	observability.ModelRequestDuration.WithLabelValues(string(task)).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ModelRequestsTotal.WithLabelValues(string(task), "error").Inc()
		slog.Warn("model request failed",
			slog.String("task", string(task)),
			slog.String("model", c.model),
			slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		observability.ModelRequestsTotal.WithLabelValues(string(task), "empty").Inc()
		return "", fmt.Errorf("%w: no completion choices", domain.ErrUpstreamUnavailable)
	}
	observability.ModelRequestsTotal.WithLabelValues(string(task), "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
