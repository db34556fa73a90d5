package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/model"
	"github.com/kart-io/bankdesk/internal/pkg/rag/textutil"
	"github.com/kart-io/bankdesk/pkg/llm"
)

const answerSystemPrompt = `You are a helpful bank customer service assistant. Your role is to answer questions
based ONLY on the provided context from the bank's knowledge base.

Guidelines:
1. Answer questions accurately using ONLY the information in the provided context
2. If the context doesn't contain enough information to answer, say so clearly
3. Be concise but complete - include all relevant details
4. Use a professional, helpful tone
5. If there are multiple relevant pieces of information, synthesize them into a coherent answer
6. Always cite which document(s) your answer is based on

You MUST respond in this exact JSON format:
{
    "answer": "your complete answer to the question",
    "primary_source": "the main document name your answer is based on"
}

If you cannot find relevant information in the context, respond with:
{
    "answer": "I don't have enough information in the knowledge base to answer this question. Please consult with a supervisor or refer to the official policy documents.",
    "primary_source": "none"
}`

// noResultsAnswer is returned when the knowledge base has nothing relevant.
const noResultsAnswer = "I couldn't find any relevant information in the knowledge base for this query."

// noSourcePlaceholder marks answers without a backing document.
const noSourcePlaceholder = "none"

// Answerer runs retrieval and produces a grounded answer for a query.
type Answerer struct {
	chat      llm.ChatProvider
	retriever *Retriever
}

// NewAnswerer creates an answerer on top of a chat provider and retriever.
func NewAnswerer(chat llm.ChatProvider, retriever *Retriever) *Answerer {
	return &Answerer{
		chat:      chat,
		retriever: retriever,
	}
}

// Answer retrieves passages for the query and asks the model for a grounded
// answer. When nothing is retrieved the canned no-results answer is returned
// without calling the model. A malformed model response degrades to the raw
// response text attributed to the closest passage's document.
func (a *Answerer) Answer(ctx context.Context, query string) (*model.SearchResult, error) {
	passages, contextBlock, err := a.retriever.RetrieveWithContext(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(passages) == 0 {
		logger.Infow("no passages retrieved, skipping answer generation",
			"query", textutil.TruncateString(query, 120))
		return &model.SearchResult{
			Query:            query,
			Answer:           noResultsAnswer,
			SourceDocument:   noSourcePlaceholder,
			RelevantPassages: []model.Passage{},
		}, nil
	}

	userPrompt := fmt.Sprintf(`Context from knowledge base:

%s

Question: %s

Please provide a helpful answer based on the context above.`, contextBlock, query)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: answerSystemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}

	response, err := timedChat(ctx, a.chat, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := response
	sourceDocument := passages[0].DocumentName

	var parsed struct {
		Answer        string `json:"answer"`
		PrimarySource string `json:"primary_source"`
	}
	if err := textutil.DecodeJSONObject(response, &parsed); err != nil {
		logger.Warnw("answer response was not valid JSON, using raw text",
			"query", textutil.TruncateString(query, 80))
	} else {
		if parsed.Answer != "" {
			answer = parsed.Answer
		}
		if parsed.PrimarySource != "" {
			sourceDocument = parsed.PrimarySource
		}
	}

	// The cited source must be one of the retrieved documents. Anything
	// else falls back to the closest passage's document.
	if !passageDocument(passages, sourceDocument) {
		sourceDocument = passages[0].DocumentName
	}

	return &model.SearchResult{
		Query:            query,
		Answer:           answer,
		SourceDocument:   sourceDocument,
		RelevantPassages: passages,
	}, nil
}

func passageDocument(passages []model.Passage, name string) bool {
	if name == "" || name == noSourcePlaceholder {
		return false
	}
	names := make([]string, len(passages))
	for i, p := range passages {
		names[i] = p.DocumentName
	}
	return textutil.ContainsString(names, name)
}
