package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragline/ragline/pkg/tool"
)

// OpenAIConfig configures the OpenAI chat client.
type OpenAIConfig struct {
	// APIKey for the OpenAI API (required).
	APIKey string

	// Model name (default: gpt-4o-mini).
	Model string

	// BaseURL for the API (default: https://api.openai.com/v1).
	BaseURL string

	// Temperature for sampling (default: 0.7).
	Temperature float64

	// MaxTokens caps the completion length (default: 2000).
	MaxTokens int

	// Timeout for API requests (default: 120s).
	Timeout time.Duration
}

// OpenAI implements LLM against the OpenAI chat completions API.
type OpenAI struct {
	client      *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

// NewOpenAI creates a new OpenAI chat client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for OpenAI")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &OpenAI{
		client:      &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.model
}

// Close releases client resources.
func (o *OpenAI) Close() error {
	return nil
}

// openaiMessage is the wire form of a chat message.
type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openaiToolFunction `json:"function"`
}

type openaiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiTool struct {
	Type     string            `json:"type"`
	Function openaiFunctionDef `json:"function"`
}

type openaiFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Tools       []openaiTool    `json:"tools,omitempty"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Chat performs a blocking completion.
func (o *OpenAI) Chat(ctx context.Context, msgs []Message, tools []tool.Definition) (*Response, error) {
	req := o.buildRequest(msgs, tools, false)

	body, err := o.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp openaiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	choice := resp.Choices[0]
	return &Response{
		Text:         choice.Message.Content,
		ToolCalls:    decodeToolCalls(choice.Message.ToolCalls),
		FinishReason: choice.FinishReason,
	}, nil
}

// ChatStream performs a streaming completion. Text deltas are forwarded to
// onDelta; tool-call fragments are assembled by index across chunks.
func (o *OpenAI) ChatStream(ctx context.Context, msgs []Message, tools []tool.Definition, onDelta func(string)) (*Response, error) {
	req := o.buildRequest(msgs, tools, true)

	body, err := o.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var (
		text         strings.Builder
		finishReason string
		calls        []*streamingToolCall
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk openaiStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Debug("skipping malformed stream chunk", "error", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			text.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			for tc.Index >= len(calls) {
				calls = append(calls, &streamingToolCall{})
			}
			c := calls[tc.Index]
			if tc.ID != "" {
				c.id = tc.ID
			}
			if tc.Function.Name != "" {
				c.name = tc.Function.Name
			}
			c.args.WriteString(tc.Function.Arguments)
		}
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}

	return &Response{
		Text:         text.String(),
		ToolCalls:    finishToolCalls(calls),
		FinishReason: finishReason,
	}, nil
}

type streamingToolCall struct {
	id   string
	name string
	args strings.Builder
}

func (o *OpenAI) buildRequest(msgs []Message, tools []tool.Definition, stream bool) openaiRequest {
	wire := make([]openaiMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := openaiMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Args)
			if err != nil {
				args = []byte("{}")
			}
			wm.ToolCalls = append(wm.ToolCalls, openaiToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: openaiToolFunction{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		wire = append(wire, wm)
	}

	var wireTools []openaiTool
	for _, d := range tools {
		wireTools = append(wireTools, openaiTool{
			Type: "function",
			Function: openaiFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}

	return openaiRequest{
		Model:       o.model,
		Messages:    wire,
		Tools:       wireTools,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Stream:      stream,
	}
}

func (o *OpenAI) post(ctx context.Context, req openaiRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		var errResp openaiErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
				errResp.Error.Message, errResp.Error.Type, errResp.Error.Code)
		}
		return nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// decodeToolCalls converts wire tool calls, synthesizing missing IDs so the
// tool-result messages can always be linked back.
func decodeToolCalls(wire []openaiToolCall) []ToolCall {
	if len(wire) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(wire))
	for _, tc := range wire {
		calls = append(calls, newToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return calls
}

func finishToolCalls(partial []*streamingToolCall) []ToolCall {
	if len(partial) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(partial))
	for _, c := range partial {
		calls = append(calls, newToolCall(c.id, c.name, c.args.String()))
	}
	return calls
}

func newToolCall(id, name, rawArgs string) ToolCall {
	if id == "" {
		id = "ragline_call_" + uuid.New().String()
	}
	args := make(map[string]any)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			slog.Warn("failed to parse tool call arguments", "tool", name, "error", err)
			args = make(map[string]any)
		}
	}
	return ToolCall{ID: id, Name: name, Args: args}
}

// Ensure OpenAI implements LLM.
var _ LLM = (*OpenAI)(nil)
