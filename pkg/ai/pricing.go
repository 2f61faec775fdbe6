package ai

import (
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sagechat-ai/sagechat/pkg/types"
)

const (
	DefaultChatModel      = openai.GPT4oMini
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
)

// ModelPrice is the USD price per 1K tokens of a chat model.
type ModelPrice struct {
	Prompt     float64
	Completion float64
}

// Static price table. Prices follow the provider's published list, stale
// entries overcharge or undercharge estimates but never break a request.
var chatPrices = map[string]ModelPrice{
	openai.GPT4oMini:     {Prompt: 0.00015, Completion: 0.0006},
	openai.GPT4o:         {Prompt: 0.0025, Completion: 0.01},
	openai.GPT4Turbo:     {Prompt: 0.01, Completion: 0.03},
	openai.GPT3Dot5Turbo: {Prompt: 0.0005, Completion: 0.0015},
}

// USD per 1M tokens.
var embeddingPrices = map[string]float64{
	string(openai.SmallEmbedding3): 0.02,
	string(openai.LargeEmbedding3): 0.13,
	string(openai.AdaEmbeddingV2):  0.10,
}

// Flat per-operation prices for the vector index.
var vectorOpPrices = map[string]float64{
	types.OPERATION_VECTOR_QUERY:  0.00002,
	types.OPERATION_VECTOR_UPSERT: 0.00002,
}

// ChatCost prices one completion call. Unknown models fall back to the
// default model's price with a warning, pricing metadata must never fail
// a request.
func ChatCost(model string, inputTokens, outputTokens int) float64 {
	price, ok := chatPrices[model]
	if !ok {
		slog.Warn("unknown chat model, falling back to default pricing",
			slog.String("model", model), slog.String("fallback", DefaultChatModel))
		price = chatPrices[DefaultChatModel]
	}
	return float64(inputTokens)/1000*price.Prompt + float64(outputTokens)/1000*price.Completion
}

// EmbeddingCost prices one embedding call, per-million-token pricing.
func EmbeddingCost(model string, tokens int) float64 {
	price, ok := embeddingPrices[model]
	if !ok {
		slog.Warn("unknown embedding model, falling back to default pricing",
			slog.String("model", model), slog.String("fallback", DefaultEmbeddingModel))
		price = embeddingPrices[DefaultEmbeddingModel]
	}
	return float64(tokens) / 1000000 * price
}

// VectorOpCost prices one vector store operation.
func VectorOpCost(operation string) float64 {
	return vectorOpPrices[operation]
}

// CostFor dispatches to the right pricing rule for a usage record.
func CostFor(operation, model string, inputTokens, outputTokens, totalTokens int) float64 {
	switch operation {
	case types.OPERATION_COMPLETION:
		return ChatCost(model, inputTokens, outputTokens)
	case types.OPERATION_EMBEDDING:
		if totalTokens == 0 {
			totalTokens = inputTokens + outputTokens
		}
		return EmbeddingCost(model, totalTokens)
	case types.OPERATION_VECTOR_QUERY, types.OPERATION_VECTOR_UPSERT:
		return VectorOpCost(operation)
	default:
		slog.Warn("unknown priced operation", slog.String("operation", operation))
		return 0
	}
}

// EstimateChatRequestCost computes the pre-flight estimate for one chat
// turn: one query embedding, one completion capped at maxCompletionTokens,
// and the two storage embeddings written after the reply.
func EstimateChatRequestCost(chatModel, embeddingModel string, messages []openai.ChatCompletionMessage, userMessage string, maxCompletionTokens int) float64 {
	promptTokens := NumTokens(messages, chatModel)
	queryTokens := NumTextTokens(userMessage, embeddingModel)

	completion := ChatCost(chatModel, promptTokens, maxCompletionTokens)
	queryEmbedding := EmbeddingCost(embeddingModel, queryTokens)
	// stored afterwards: the user message and a reply assumed to hit the cap
	storageEmbeddings := EmbeddingCost(embeddingModel, queryTokens+maxCompletionTokens)

	return completion + queryEmbedding + storageEmbeddings + VectorOpCost(types.OPERATION_VECTOR_QUERY)
}
