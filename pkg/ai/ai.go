package ai

// ChatResult carries one completion reply plus the provider's token accounting.
type ChatResult struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// EmbedResult is one embedding vector plus its token usage.
type EmbedResult struct {
	Vector []float32 `json:"-"`
	Model  string    `json:"model"`
	Tokens int       `json:"tokens"`
}
