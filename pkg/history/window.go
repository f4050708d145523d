package history

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ragline/ragline/pkg/llm"
)

// TokenCounter counts the tokens of a text.
type TokenCounter interface {
	Count(text string) int
}

// NewTokenCounter builds a counter for the given model. When the tiktoken
// encoding cannot be loaded (offline environments), it falls back to a
// bytes/4 estimate.
func NewTokenCounter(model string) TokenCounter {
	return &lazyCounter{model: model}
}

type lazyCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func (c *lazyCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			slog.Warn("tiktoken encoding unavailable, using byte estimate",
				"model", c.model, "error", err)
			return
		}
		c.enc = enc
	})

	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// EstimateCounter always uses the bytes/4 heuristic.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return estimateTokens(text)
}

func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Window trims the oldest turns until the replayed messages fit the token
// budget. Messages are dropped in whole turns (user/assistant pairs) so the
// conversation stays well formed. A budget of 0 disables trimming.
func Window(msgs []llm.Message, maxTokens int, counter TokenCounter) []llm.Message {
	if maxTokens <= 0 || len(msgs) == 0 {
		return msgs
	}

	total := 0
	for _, m := range msgs {
		total += counter.Count(m.Content)
	}

	start := 0
	for total > maxTokens && start+2 <= len(msgs) {
		total -= counter.Count(msgs[start].Content)
		total -= counter.Count(msgs[start+1].Content)
		start += 2
	}
	if start > 0 {
		slog.Debug("history window trimmed", "dropped_messages", start)
	}
	return msgs[start:]
}
