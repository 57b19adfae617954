// Package optimizer provides conversation.ContextOptimizer implementations:
// a local tokenizer-backed scorer and a client for a remote optimization
// service.
package optimizer

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/domain/llm"
)

const (
	// DefaultContextLength is used when the model context length is unknown.
	DefaultContextLength = 128000

	// SafetyMarginRatio reserves space for the response and overhead.
	SafetyMarginRatio = 0.80

	// messageOverheadTokens covers role and structure tokens per message.
	messageOverheadTokens = 10
)

// TokenCounter counts the tokens of text as the given model tokenizes it.
type TokenCounter func(model, text string) (int, error)

// Local scores conversation context against the model window using a real
// tokenizer. The only network call is the model metadata lookup.
type Local struct {
	models  llm.ModelInfoProvider
	counter TokenCounter
	log     zerolog.Logger

	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewLocal builds the local optimizer. A nil models provider keeps the
// default context window; a nil counter uses tiktoken.
func NewLocal(models llm.ModelInfoProvider, counter TokenCounter, log zerolog.Logger) *Local {
	l := &Local{
		models:    models,
		counter:   counter,
		log:       log.With().Str("component", "local-optimizer").Logger(),
		encodings: make(map[string]*tiktoken.Tiktoken),
	}
	if l.counter == nil {
		l.counter = l.countWithTiktoken
	}
	return l
}

// OptimizeContext counts the input against the model's context budget.
// Over budget means ShouldTruncate with a summary of what a trim would
// drop; the conversation itself is never modified here.
func (l *Local) OptimizeContext(ctx context.Context, input conversation.OptimizationInput) (*conversation.OptimizationResult, error) {
	budget := int(float64(l.contextWindow(ctx, input.Model)) * SafetyMarginRatio)

	counts := make([]int, len(input.Messages))
	total := 0
	for i, msg := range input.Messages {
		n, err := l.counter(input.Model, msg.Content)
		if err != nil {
			return nil, fmt.Errorf("count tokens: %w", err)
		}
		counts[i] = n + messageOverheadTokens
		total += counts[i]
	}

	result := &conversation.OptimizationResult{
		RelevanceScore: relevanceScore(budget, total),
		TotalTokens:    total,
	}

	if total > budget {
		result.ShouldTruncate = true
		result.Summary = trimSummary(input.Messages, counts, total, budget)
	}

	l.log.Debug().
		Str("conversation_id", input.ConversationID).
		Str("model", input.Model).
		Int("total_tokens", total).
		Int("budget", budget).
		Bool("should_truncate", result.ShouldTruncate).
		Msg("context scored")
	return result, nil
}

func (l *Local) contextWindow(ctx context.Context, model string) int {
	window := DefaultContextLength
	if l.models == nil {
		return window
	}
	info, err := l.models.GetModelInfo(ctx, model)
	if err != nil {
		l.log.Warn().Err(err).Str("model", model).Msg("model info lookup failed, using default window")
		return window
	}
	if info != nil && info.ContextLength != nil && *info.ContextLength > 0 {
		window = *info.ContextLength
	}
	return window
}

func (l *Local) countWithTiktoken(model, text string) (int, error) {
	enc, err := l.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (l *Local) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enc, ok := l.encodings[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	l.encodings[model] = enc
	return enc, nil
}

// relevanceScore is the budget/used ratio clamped to [0, 1].
func relevanceScore(budget, used int) float64 {
	if used <= 0 {
		return 1
	}
	score := float64(budget) / float64(used)
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// trimSummary names what a trim would drop to get back under budget.
// Oldest tool results go first, then assistant turns. System and user
// messages are never candidates.
func trimSummary(messages []conversation.ContextMessage, counts []int, total, budget int) string {
	remaining := total
	freed := 0
	toolResults := 0
	assistantTurns := 0

	for _, role := range []string{"tool", "assistant"} {
		for i, msg := range messages {
			if remaining <= budget {
				break
			}
			if msg.Role != role {
				continue
			}
			if role == "tool" {
				toolResults++
			} else {
				assistantTurns++
			}
			freed += counts[i]
			remaining -= counts[i]
		}
	}

	if toolResults == 0 && assistantTurns == 0 {
		return "over budget but nothing trimmable: only system and user turns remain"
	}

	summary := fmt.Sprintf("dropping %d tool result(s) and %d assistant turn(s) frees ~%d tokens", toolResults, assistantTurns, freed)
	if remaining > budget {
		summary += "; still over budget afterwards"
	}
	return summary
}

// Ensure interface compliance.
var _ conversation.ContextOptimizer = (*Local)(nil)
