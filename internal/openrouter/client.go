// Package openrouter wraps chat completion calls against the OpenRouter
// gateway. A fixed model table keyed by use case picks the model, the
// temperature and the token ceiling for each request.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"backend-roomreq/internal/models"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ModelConfig struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// ModelTable maps a use-case tag to its fixed model configuration.
type ModelTable map[models.UseCase]ModelConfig

// DefaultModels returns the built-in model table.
func DefaultModels() ModelTable {
	return ModelTable{
		models.UseCaseGeneral: {
			ID:          "anthropic/claude-3.5-sonnet",
			Name:        "Claude 3.5 Sonnet",
			Description: "Primary model for most tasks",
			Temperature: 0.2,
			MaxTokens:   8192,
		},
		models.UseCaseResearch: {
			ID:          "google/gemini-pro",
			Name:        "Gemini Pro",
			Description: "Deep research and complex analysis",
			Temperature: 0.1,
			MaxTokens:   4096,
		},
		models.UseCaseQuick: {
			ID:          "google/gemini-flash-1.5",
			Name:        "Gemini Flash",
			Description: "Quick responses for simple tasks",
			Temperature: 0.3,
			MaxTokens:   4096,
		},
	}
}

// LoadModelTable reads a YAML model table and merges it over the defaults.
// Unknown use-case keys are rejected.
func LoadModelTable(path string) (ModelTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model table: %w", err)
	}
	var overrides map[models.UseCase]ModelConfig
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parsing model table %s: %w", path, err)
	}

	table := DefaultModels()
	for useCase, cfg := range overrides {
		if _, ok := table[useCase]; !ok {
			return nil, fmt.Errorf("unknown use case %q in %s", useCase, path)
		}
		table[useCase] = cfg
	}
	return table, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns the first choice's message content, or "".
func (r *ChatResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// APIError is returned when the gateway answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenRouter API error: %d - %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL    string
	Referer    string
	Models     ModelTable
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

type Client struct {
	apiKey  string
	baseURL string
	referer string
	models  ModelTable
	http    *http.Client
	log     *zap.SugaredLogger
}

// NewClient builds a gateway client. The credential is required.
func NewClient(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		referer: opts.Referer,
		models:  opts.Models,
		http:    opts.HTTPClient,
		log:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.models == nil {
		c.models = DefaultModels()
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	return c, nil
}

// ModelFor returns the model configuration selected by the use-case tag.
// Unknown tags fall back to the general profile.
func (c *Client) ModelFor(useCase models.UseCase) ModelConfig {
	if cfg, ok := c.models[useCase]; ok {
		return cfg
	}
	return c.models[models.UseCaseGeneral]
}

// Models returns the configured model table.
func (c *Client) Models() ModelTable {
	return c.models
}

// SendMessage issues a non-streaming completion request and returns the
// parsed response.
func (c *Client) SendMessage(ctx context.Context, messages []Message, useCase models.UseCase) (*ChatResponse, error) {
	resp, err := c.do(ctx, messages, useCase, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if chatResp.Content() == "" {
		return nil, fmt.Errorf("no content in response")
	}

	c.log.Debugw("got non-streaming response",
		"id", chatResp.ID,
		"contentLength", len(chatResp.Content()),
		"totalTokens", chatResp.Usage.TotalTokens)
	return &chatResp, nil
}

// StreamMessage issues a streaming completion request and returns the raw
// SSE body. The caller owns the stream and must close it.
func (c *Client) StreamMessage(ctx context.Context, messages []Message, useCase models.UseCase) (io.ReadCloser, error) {
	resp, err := c.do(ctx, messages, useCase, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, messages []Message, useCase models.UseCase, stream bool) (*http.Response, error) {
	model := c.ModelFor(useCase)
	chatReq := chatRequest{
		Model:       model.ID,
		Messages:    messages,
		Stream:      stream,
		Temperature: model.Temperature,
		MaxTokens:   model.MaxTokens,
	}

	requestBody, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	req.Header.Set("X-Title", "Room of Requirements")

	c.log.Debugw("sending request to OpenRouter",
		"model", model.ID,
		"messageCount", len(messages),
		"useCase", useCase,
		"stream", stream)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling OpenRouter API: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
