package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/model"
	"github.com/kart-io/bankdesk/internal/pkg/rag/textutil"
	"github.com/kart-io/bankdesk/pkg/llm"
)

const validationSystemPrompt = `You are a quality assurance specialist for a bank customer service system.

Your task is to evaluate an answer that was generated from the bank's knowledge base.
You will receive the original question, the generated answer, and the source passages
the answer should be based on.

Score the answer on four criteria:
- grounded_score (0-40): Is every claim in the answer supported by the source passages?
- relevant_score (0-30): Does the answer actually address the question that was asked?
- complete_score (0-20): Does the answer include all relevant details from the sources?
- clear_score (0-10): Is the answer clear, professional, and well organized?

You MUST respond in this exact JSON format:
{
    "grounded_score": <0-40>,
    "relevant_score": <0-30>,
    "complete_score": <0-20>,
    "clear_score": <0-10>,
    "is_grounded": <true or false>,
    "is_relevant": <true or false>,
    "is_complete": <true or false>,
    "reasoning": "a brief explanation of the scores"
}`

// Score caps and the defaults used when the model omits a field.
const (
	groundedCap     = 40
	relevantCap     = 30
	completeCap     = 20
	clearCap        = 10
	groundedDefault = 20
	relevantDefault = 15
	completeDefault = 10
	clearDefault    = 5
)

// unparseableReasoning goes into the result when the model response cannot
// be decoded at all.
const unparseableReasoning = "Unable to parse validation response, defaulting to moderate confidence."

// Validator scores generated answers against their source passages.
type Validator struct {
	chat llm.ChatProvider
}

// NewValidator creates a validator on top of a chat provider.
func NewValidator(chat llm.ChatProvider) *Validator {
	return &Validator{chat: chat}
}

// Validate scores the answer. Provider errors propagate; a response the
// model failed to format degrades to a moderate confidence of 50.
func (v *Validator) Validate(ctx context.Context, question, answer string, sources []string) (*model.ValidationResult, error) {
	userPrompt := fmt.Sprintf(`Question: %s

Answer: %s

Source passages:
%s

Please evaluate the answer against the source passages.`, question, answer, formatSources(sources))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: validationSystemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}

	response, err := timedChat(ctx, v.chat, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to validate answer: %w", err)
	}

	var parsed struct {
		GroundedScore *int   `json:"grounded_score"`
		RelevantScore *int   `json:"relevant_score"`
		CompleteScore *int   `json:"complete_score"`
		ClearScore    *int   `json:"clear_score"`
		IsGrounded    bool   `json:"is_grounded"`
		IsRelevant    bool   `json:"is_relevant"`
		IsComplete    bool   `json:"is_complete"`
		Reasoning     string `json:"reasoning"`
	}
	if err := textutil.DecodeJSONObject(response, &parsed); err != nil {
		logger.Warnw("validation response was not valid JSON, using moderate confidence")
		return &model.ValidationResult{
			ConfidenceScore: 50,
			Reasoning:       unparseableReasoning,
		}, nil
	}

	score := clampScore(parsed.GroundedScore, groundedDefault, groundedCap) +
		clampScore(parsed.RelevantScore, relevantDefault, relevantCap) +
		clampScore(parsed.CompleteScore, completeDefault, completeCap) +
		clampScore(parsed.ClearScore, clearDefault, clearCap)

	return &model.ValidationResult{
		ConfidenceScore: score,
		Reasoning:       parsed.Reasoning,
		IsGrounded:      parsed.IsGrounded,
		IsRelevant:      parsed.IsRelevant,
		IsComplete:      parsed.IsComplete,
	}, nil
}

// clampScore applies the default for a missing field and clamps present
// values to [0, limit].
func clampScore(value *int, def, limit int) int {
	if value == nil {
		return def
	}
	v := *value
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

func formatSources(sources []string) string {
	if len(sources) == 0 {
		return "(no source passages)"
	}

	blocks := make([]string, len(sources))
	for i, s := range sources {
		blocks[i] = fmt.Sprintf("[%d] %s", i+1, s)
	}
	return strings.Join(blocks, "\n\n")
}
