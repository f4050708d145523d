// Package agent runs the tool-calling conversation loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/tool"
)

// ErrToolLoopExceeded is returned when the model keeps requesting tools past
// the configured round limit. Callers can branch on it to report a clearer
// failure than a generic model error.
var ErrToolLoopExceeded = errors.New("tool loop exceeded maximum rounds")

// Config tunes the conversation loop.
type Config struct {
	// SystemPrompt is prepended to every conversation.
	SystemPrompt string

	// MaxToolRounds caps assistant->tools cycles per turn (default: 8).
	MaxToolRounds int
}

// Agent drives one conversation turn: assistant, then tools if requested,
// then assistant again, until a final answer or the round limit.
type Agent struct {
	llm           llm.LLM
	registry      *tool.Registry
	systemPrompt  string
	maxToolRounds int
}

// New creates an agent.
func New(model llm.LLM, registry *tool.Registry, cfg Config) *Agent {
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 8
	}
	return &Agent{
		llm:           model,
		registry:      registry,
		systemPrompt:  cfg.SystemPrompt,
		maxToolRounds: maxRounds,
	}
}

// Ask runs a turn to completion and returns the final answer.
func (a *Agent) Ask(ctx context.Context, msgs []llm.Message) (string, error) {
	return a.run(ctx, msgs, nil)
}

// Stream runs a turn, forwarding answer deltas to sink as they arrive, and
// returns the full final answer. Sink must not block; delivery failures are
// the caller's concern and never interrupt the turn.
func (a *Agent) Stream(ctx context.Context, msgs []llm.Message, sink func(delta string)) (string, error) {
	return a.run(ctx, msgs, sink)
}

func (a *Agent) run(ctx context.Context, msgs []llm.Message, sink func(string)) (string, error) {
	conversation := make([]llm.Message, 0, len(msgs)+1)
	if a.systemPrompt != "" {
		conversation = append(conversation, llm.SystemMessage(a.systemPrompt))
	}
	conversation = append(conversation, msgs...)

	defs := a.registry.Definitions()

	for round := 0; ; round++ {
		resp, err := a.complete(ctx, conversation, defs, sink)
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}

		if resp.Final() {
			return resp.Text, nil
		}

		// The round limit counts executed tool rounds. A request past it is
		// refused outright rather than running tools whose results nothing
		// would consume.
		if round >= a.maxToolRounds {
			return "", fmt.Errorf("%w (%d)", ErrToolLoopExceeded, a.maxToolRounds)
		}

		slog.Debug("model requested tools", "round", round, "calls", len(resp.ToolCalls))
		conversation = append(conversation, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		conversation = append(conversation, a.executeToolCalls(ctx, resp.ToolCalls)...)
	}
}

func (a *Agent) complete(ctx context.Context, msgs []llm.Message, defs []tool.Definition, sink func(string)) (*llm.Response, error) {
	if sink == nil {
		return a.llm.Chat(ctx, msgs, defs)
	}
	return a.llm.ChatStream(ctx, msgs, defs, sink)
}

// executeToolCalls runs the requested calls in order, synchronously. A tool
// failure or an unknown tool becomes an error-text result for the model; it
// never aborts the turn.
func (a *Agent) executeToolCalls(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		results = append(results, llm.ToolResultMessage(call.ID, a.executeToolCall(ctx, call)))
	}
	return results
}

func (a *Agent) executeToolCall(ctx context.Context, call llm.ToolCall) string {
	t, ok := a.registry.Get(call.Name)
	if !ok {
		slog.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Error: unknown tool: %s", call.Name)
	}

	out, err := t.Call(ctx, call.Args)
	if err != nil {
		slog.Warn("tool call failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}
