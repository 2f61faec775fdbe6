package srv

import (
	"context"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sagechat-ai/sagechat/pkg/ai"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

const DEFAULT_MAX_COMPLETION_TOKENS = 1024

// ChatAI 负责生成回复
type ChatAI interface {
	Chat(ctx context.Context, messages []types.MessageContext) (*ai.ChatResult, error)
	ChatModel() string
	MaxCompletionTokens() int
}

// EmbeddingAI 负责文本向量化
type EmbeddingAI interface {
	Embed(ctx context.Context, text string) (*ai.EmbedResult, error)
	EmbeddingModel() string
}

type AIDriver interface {
	ChatAI
	EmbeddingAI
}

type AIConfig struct {
	Token    string `toml:"token"`
	Endpoint string `toml:"endpoint"`

	ChatModel           string  `toml:"chat_model"`
	EmbeddingModel      string  `toml:"embedding_model"`
	MaxCompletionTokens int     `toml:"max_completion_tokens"`
	Temperature         float32 `toml:"temperature"`
}

func (c *AIConfig) FromENV() {
	c.Token = os.Getenv("SAGECHAT_AI_TOKEN")
	c.Endpoint = os.Getenv("SAGECHAT_AI_ENDPOINT")
	c.ChatModel = os.Getenv("SAGECHAT_AI_CHAT_MODEL")
	c.EmbeddingModel = os.Getenv("SAGECHAT_AI_EMBEDDING_MODEL")
}

// OpenAIDriver 基于 openai 兼容接口的默认驱动
type OpenAIDriver struct {
	client *openai.Client
	cfg    AIConfig
}

func SetupOpenAIDriver(cfg AIConfig) *OpenAIDriver {
	if cfg.ChatModel == "" {
		cfg.ChatModel = ai.DefaultChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = ai.DefaultEmbeddingModel
	}
	if cfg.MaxCompletionTokens <= 0 {
		cfg.MaxCompletionTokens = DEFAULT_MAX_COMPLETION_TOKENS
	}

	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}

	return &OpenAIDriver{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

func (d *OpenAIDriver) ChatModel() string {
	return d.cfg.ChatModel
}

func (d *OpenAIDriver) EmbeddingModel() string {
	return d.cfg.EmbeddingModel
}

func (d *OpenAIDriver) MaxCompletionTokens() int {
	return d.cfg.MaxCompletionTokens
}

func (d *OpenAIDriver) Chat(ctx context.Context, messages []types.MessageContext) (*ai.ChatResult, error) {
	req := openai.ChatCompletionRequest{
		Model: d.cfg.ChatModel,
		Messages: func() []openai.ChatCompletionMessage {
			list := make([]openai.ChatCompletionMessage, 0, len(messages))
			for _, item := range messages {
				list = append(list, openai.ChatCompletionMessage{
					Role:    item.Role,
					Content: item.Content,
				})
			}
			return list
		}(),
		MaxTokens:   d.cfg.MaxCompletionTokens,
		Temperature: d.cfg.Temperature,
	}

	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.New("OpenAIDriver.Chat.CreateChatCompletion", i18n.ERROR_AI_UNAVAILABLE, err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	return &ai.ChatResult{
		Content:          content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (d *OpenAIDriver) Embed(ctx context.Context, text string) (*ai.EmbedResult, error) {
	resp, err := d.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(d.cfg.EmbeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, errors.New("OpenAIDriver.Embed.CreateEmbeddings", i18n.ERROR_AI_UNAVAILABLE, err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("OpenAIDriver.Embed.EmptyData", i18n.ERROR_AI_UNAVAILABLE, nil)
	}

	return &ai.EmbedResult{
		Vector: resp.Data[0].Embedding,
		Model:  d.cfg.EmbeddingModel,
		Tokens: resp.Usage.TotalTokens,
	}, nil
}
