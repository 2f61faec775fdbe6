package ai

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/sagechat-ai/sagechat/pkg/types"
)

func Test_ChatCost_Monotonic(t *testing.T) {
	prev := 0.0
	for tokens := 0; tokens <= 4000; tokens += 500 {
		cost := ChatCost(openai.GPT4oMini, tokens, tokens)
		assert.GreaterOrEqual(t, cost, prev)
		assert.GreaterOrEqual(t, cost, 0.0)
		prev = cost
	}
}

func Test_ChatCost_UnknownModelFallsBack(t *testing.T) {
	got := ChatCost("some-future-model", 1000, 1000)
	want := ChatCost(DefaultChatModel, 1000, 1000)
	assert.Equal(t, want, got)
}

func Test_ChatCost_Formula(t *testing.T) {
	// 1K prompt + 2K completion at the gpt-4o-mini price points
	got := ChatCost(openai.GPT4oMini, 1000, 2000)
	assert.InDelta(t, 0.00015+2*0.0006, got, 1e-9)
}

func Test_EmbeddingCost_PerMillion(t *testing.T) {
	got := EmbeddingCost(string(openai.SmallEmbedding3), 1000000)
	assert.InDelta(t, 0.02, got, 1e-9)

	assert.Equal(t, EmbeddingCost(DefaultEmbeddingModel, 500), EmbeddingCost("mystery-embedder", 500))
}

func Test_CostFor_VectorOpsAreFlat(t *testing.T) {
	q := CostFor(types.OPERATION_VECTOR_QUERY, "", 0, 0, 0)
	u := CostFor(types.OPERATION_VECTOR_UPSERT, "", 123, 456, 789)
	assert.Greater(t, q, 0.0)
	assert.Greater(t, u, 0.0)
	assert.Equal(t, q, CostFor(types.OPERATION_VECTOR_QUERY, "whatever", 9, 9, 9))
}

func Test_EstimateChatRequestCost(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful AI assistant."},
		{Role: openai.ChatMessageRoleUser, Content: "hello there"},
	}

	est := EstimateChatRequestCost(DefaultChatModel, DefaultEmbeddingModel, messages, "hello there", 1024)
	assert.Greater(t, est, 0.0)

	// a longer pending reply cap can only raise the estimate
	bigger := EstimateChatRequestCost(DefaultChatModel, DefaultEmbeddingModel, messages, "hello there", 4096)
	assert.Greater(t, bigger, est)
}

func Test_NumTokens(t *testing.T) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "count my tokens please"},
	}
	n := NumTokens(messages, DefaultChatModel)
	assert.Greater(t, n, 3)

	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "sure"})
	assert.Greater(t, NumTokens(messages, DefaultChatModel), n)
}
