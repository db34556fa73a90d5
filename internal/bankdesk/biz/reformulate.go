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

const reformulationSystemPrompt = `You are a query reformulation specialist for a bank customer service system.

Your task is to take raw questions from customer service representatives (which may include emotional language,
incomplete sentences, or informal descriptions) and convert them into clear, optimized search queries.

Guidelines:
1. Remove emotional language (e.g., "customer is angry", "they're yelling")
2. Extract the core banking topic or issue
3. Convert to a clear, search-friendly query
4. Identify the main intent category

Intent categories:
- ACCOUNT: Account opening, closing, management
- LOANS: Personal loans, mortgages, auto loans
- FEES: Fees, charges, refunds, disputes
- CARDS: Credit cards, debit cards, fraud
- BRANCH: Branch locations, hours, contact info
- TECH: Mobile app, online banking, technical issues
- OTHER: Anything else

You MUST respond in this exact JSON format:
{
    "reformulated_query": "the optimized search query",
    "detected_intent": "one of the intent categories above"
}

Examples:

Input: "Customer is yelling that money was stolen from his card"
Output: {"reformulated_query": "unauthorized credit card charge dispute process and fraud protection", "detected_intent": "CARDS"}

Input: "how do I help someone open a checking account they're in a rush"
Output: {"reformulated_query": "checking account opening requirements and process", "detected_intent": "ACCOUNT"}

Input: "app won't let them log in keeps saying error"
Output: {"reformulated_query": "mobile app login error troubleshooting", "detected_intent": "TECH"}`

// Reformulator rewrites raw representative questions into clean search
// queries and tags them with an intent category.
type Reformulator struct {
	chat llm.ChatProvider
}

// NewReformulator creates a reformulator on top of a chat provider.
func NewReformulator(chat llm.ChatProvider) *Reformulator {
	return &Reformulator{chat: chat}
}

// Reformulate rewrites the question. Provider errors propagate; a response
// the model failed to format degrades to the raw question with intent OTHER.
func (r *Reformulator) Reformulate(ctx context.Context, question string) (*model.ReformulationResult, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: reformulationSystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}

	response, err := timedChat(ctx, r.chat, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to reformulate question: %w", err)
	}

	result := &model.ReformulationResult{
		OriginalQuestion:  question,
		ReformulatedQuery: question,
		DetectedIntent:    model.IntentOther,
	}

	var parsed struct {
		ReformulatedQuery string `json:"reformulated_query"`
		DetectedIntent    string `json:"detected_intent"`
	}
	if err := textutil.DecodeJSONObject(response, &parsed); err != nil {
		logger.Warnw("reformulation response was not valid JSON, using raw question",
			"question", textutil.TruncateString(question, 80))
		return result, nil
	}

	if parsed.ReformulatedQuery != "" {
		result.ReformulatedQuery = parsed.ReformulatedQuery
	}
	intent := strings.ToUpper(strings.TrimSpace(parsed.DetectedIntent))
	if model.IsValidIntent(intent) {
		result.DetectedIntent = intent
	}

	logger.Debugw("reformulated question",
		"intent", result.DetectedIntent,
		"query", textutil.TruncateString(result.ReformulatedQuery, 120))

	return result, nil
}
