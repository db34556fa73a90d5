package biz

import (
	"context"
	"time"

	"github.com/kart-io/bankdesk/internal/bankdesk/metrics"
	"github.com/kart-io/bankdesk/pkg/llm"
)

// timedChat wraps a chat call with LLM call metrics.
func timedChat(ctx context.Context, chat llm.ChatProvider, messages []llm.Message) (string, error) {
	start := time.Now()
	response, err := chat.Chat(ctx, messages)
	metrics.GetPipelineMetrics().RecordLLMCall(time.Since(start), err)
	return response, err
}
