package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/tool"
)

// scriptedLLM replays canned responses and records the messages it was
// called with.
type scriptedLLM struct {
	responses []*llm.Response
	err       error
	calls     [][]llm.Message
}

func (s *scriptedLLM) Model() string { return "scripted" }
func (s *scriptedLLM) Close() error  { return nil }

func (s *scriptedLLM) Chat(ctx context.Context, msgs []llm.Message, tools []tool.Definition) (*llm.Response, error) {
	return s.next(msgs)
}

func (s *scriptedLLM) ChatStream(ctx context.Context, msgs []llm.Message, tools []tool.Definition, onDelta func(string)) (*llm.Response, error) {
	resp, err := s.next(msgs)
	if err != nil {
		return nil, err
	}
	if onDelta != nil && resp.Text != "" {
		onDelta(resp.Text[:len(resp.Text)/2])
		onDelta(resp.Text[len(resp.Text)/2:])
	}
	return resp, nil
}

func (s *scriptedLLM) next(msgs []llm.Message) (*llm.Response, error) {
	s.calls = append(s.calls, msgs)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

// recordingTool records its calls and returns a fixed result.
type recordingTool struct {
	name   string
	result string
	err    error
	args   []map[string]any
}

func (t *recordingTool) Definition() tool.Definition {
	return tool.Definition{Name: t.name}
}

func (t *recordingTool) Call(ctx context.Context, args map[string]any) (string, error) {
	t.args = append(t.args, args)
	return t.result, t.err
}

func newAgent(t *testing.T, model llm.LLM, tools ...tool.CallableTool) *Agent {
	t.Helper()
	registry := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, registry.Register(tl))
	}
	return New(model, registry, Config{SystemPrompt: "be helpful", MaxToolRounds: 3})
}

func TestAskFinalAnswerWithoutTools(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{{Text: "done"}}}
	a := newAgent(t, model)

	answer, err := a.Ask(context.Background(), []llm.Message{llm.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "done", answer)

	// One model call; the system prompt leads the conversation.
	require.Len(t, model.calls, 1)
	assert.Equal(t, llm.RoleSystem, model.calls[0][0].Role)
	assert.Equal(t, llm.RoleUser, model.calls[0][1].Role)
}

func TestAskExecutesToolsThenFinishes(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID: "call_1", Name: "retrieve_documents",
			Args: map[string]any{"query": "go"},
		}}},
		{Text: "grounded answer"},
	}}
	docs := &recordingTool{name: "retrieve_documents", result: "Document 1:\nsome content"}
	a := newAgent(t, model, docs)

	answer, err := a.Ask(context.Background(), []llm.Message{llm.UserMessage("what is go?")})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)

	// The tool ran once with the requested args.
	require.Len(t, docs.args, 1)
	assert.Equal(t, "go", docs.args[0]["query"])

	// Second model call sees the assistant tool request and its result.
	require.Len(t, model.calls, 2)
	second := model.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	require.Len(t, second[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
	assert.Equal(t, "Document 1:\nsome content", second[3].Content)
}

func TestToolErrorBecomesResultNotFailure(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "flaky"}}},
		{Text: "recovered"},
	}}
	flaky := &recordingTool{name: "flaky", err: errors.New("boom")}
	a := newAgent(t, model, flaky)

	answer, err := a.Ask(context.Background(), []llm.Message{llm.UserMessage("go")})
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)

	second := model.calls[1]
	assert.Equal(t, "Error: boom", second[len(second)-1].Content)
}

func TestUnknownToolBecomesResultNotFailure(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "missing"}}},
		{Text: "ok"},
	}}
	a := newAgent(t, model)

	answer, err := a.Ask(context.Background(), []llm.Message{llm.UserMessage("go")})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)

	second := model.calls[1]
	assert.Equal(t, "Error: unknown tool: missing", second[len(second)-1].Content)
}

func TestModelErrorPropagates(t *testing.T) {
	model := &scriptedLLM{err: errors.New("rate limited")}
	a := newAgent(t, model)

	_, err := a.Ask(context.Background(), []llm.Message{llm.UserMessage("go")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestToolLoopExceeded(t *testing.T) {
	// The model keeps asking for tools on every round.
	loop := &llm.Response{ToolCalls: []llm.ToolCall{{ID: "c", Name: "echo"}}}
	model := &scriptedLLM{responses: []*llm.Response{loop, loop, loop, loop, loop}}
	echo := &recordingTool{name: "echo", result: "again"}
	a := newAgent(t, model, echo)

	_, err := a.Ask(context.Background(), []llm.Message{llm.UserMessage("go")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolLoopExceeded)

	// MaxToolRounds=3: exactly 3 executed tool rounds, and the request past
	// the limit is refused without running its tools.
	assert.Len(t, model.calls, 4)
	assert.Len(t, echo.args, 3)
}

func TestStreamForwardsDeltasAndReturnsFullAnswer(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{{Text: "streamed"}}}
	a := newAgent(t, model)

	var deltas []string
	answer, err := a.Stream(context.Background(), []llm.Message{llm.UserMessage("go")}, func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)

	assert.Equal(t, "streamed", answer)
	assert.Equal(t, []string{"stre", "amed"}, deltas)
}
