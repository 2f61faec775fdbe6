package ai

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// NumTokens counts the prompt tokens a message list will consume,
// following the provider's per-message framing overhead. Counting is an
// estimation aid, so encoder failures degrade to a rough approximation
// instead of erroring.
func NumTokens(messages []openai.ChatCompletionMessage, model string) int {
	const tokensPerMessage = 3

	tkm, err := tiktoken.EncodingForModel(encoderModel(model))
	if err != nil {
		slog.Warn("failed to load token encoder, approximating", slog.String("model", model), slog.String("error", err.Error()))
		var total int
		for _, m := range messages {
			total += tokensPerMessage + approxTokens(m.Content) + approxTokens(m.Role)
		}
		return total + 3
	}

	var numTokens int
	for _, message := range messages {
		numTokens += tokensPerMessage
		numTokens += len(tkm.Encode(message.Content, nil, nil))
		numTokens += len(tkm.Encode(message.Role, nil, nil))
	}
	numTokens += 3 // every reply is primed with <|start|>assistant<|message|>
	return numTokens
}

// NumTextTokens counts tokens of a bare string, used for embedding inputs.
func NumTextTokens(text, model string) int {
	tkm, err := tiktoken.EncodingForModel(encoderModel(model))
	if err != nil {
		return approxTokens(text)
	}
	return len(tkm.Encode(text, nil, nil))
}

func encoderModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "text-embedding-3"):
		return openai.GPT4o
	case strings.HasPrefix(model, "gpt-4"):
		return openai.GPT4
	default:
		return openai.GPT3Dot5Turbo
	}
}

func approxTokens(s string) int {
	return len(s)/4 + 1
}
