package v1

import (
	"context"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/sagechat-ai/sagechat/pkg/ai"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/security"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

type fakeChatDriver struct {
	reply    string
	err      error
	calls    int
	messages []types.MessageContext
}

func (f *fakeChatDriver) Chat(ctx context.Context, messages []types.MessageContext) (*ai.ChatResult, error) {
	f.calls++
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ChatResult{
		Content:          f.reply,
		Model:            ai.DefaultChatModel,
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
	}, nil
}

func (f *fakeChatDriver) ChatModel() string { return ai.DefaultChatModel }

func (f *fakeChatDriver) EmbeddingModel() string { return ai.DefaultEmbeddingModel }

func (f *fakeChatDriver) MaxCompletionTokens() int { return 64 }

func (f *fakeChatDriver) Embed(ctx context.Context, text string) (*ai.EmbedResult, error) {
	return &ai.EmbedResult{Vector: []float32{0.1}, Model: ai.DefaultEmbeddingModel, Tokens: 1}, nil
}

type fakeChatGuard struct {
	result types.QuotaCheckResult
	calls  int
}

func (f *fakeChatGuard) CheckLimits(ctx context.Context, userID string, estimatedCost float64) types.QuotaCheckResult {
	f.calls++
	return f.result
}

type fakeChatRetriever struct {
	result RetrieveResult
	calls  int
}

func (f *fakeChatRetriever) Retrieve(ctx context.Context, userID, conversationID, query string) RetrieveResult {
	f.calls++
	return f.result
}

func authedContext(userID string) context.Context {
	claims := security.NewTokenClaims(userID, "test-token", time.Now().Add(time.Hour).Unix())
	return context.WithValue(context.Background(), TOKEN_CONTEXT_KEY, claims)
}

func Test_ChatLogic_QuotaRejectionShortCircuits(t *testing.T) {
	driver := &fakeChatDriver{reply: "should never be produced"}
	retriever := &fakeChatRetriever{}
	guard := &fakeChatGuard{result: types.QuotaCheckResult{
		Allowed: false,
		Reason:  "Daily limit exceeded: spent 0.0450, estimated 0.0010, limit 0.0450",
	}}
	logic := &ChatLogic{
		ctx:       authedContext("u1"),
		driver:    driver,
		guard:     guard,
		retriever: retriever,
	}

	resp, err := logic.SendMessage(SendMessageRequest{Message: "hi", ConversationID: "c1"})

	assert.Nil(t, resp)
	ce, ok := err.(*errors.CustomizedError)
	if assert.True(t, ok) {
		assert.Equal(t, 429, ce.GetCode())
	}
	assert.Equal(t, 1, guard.calls)
	// 拒绝发生在任何付费调用之前
	assert.Equal(t, 0, driver.calls)
	assert.Equal(t, 0, retriever.calls)
}

func Test_ChatLogic_EmptyReplyFails(t *testing.T) {
	driver := &fakeChatDriver{reply: ""}
	logic := &ChatLogic{
		ctx:       authedContext("u1"),
		driver:    driver,
		guard:     &fakeChatGuard{result: types.QuotaCheckResult{Allowed: true}},
		retriever: &fakeChatRetriever{},
	}

	resp, err := logic.SendMessage(SendMessageRequest{Message: "hi"})

	assert.Nil(t, resp)
	ce, ok := err.(*errors.CustomizedError)
	if assert.True(t, ok) {
		assert.Equal(t, 502, ce.GetCode())
	}
	assert.Equal(t, 1, driver.calls)
}

func Test_ChatLogic_DegradedRetrievalStillReplies(t *testing.T) {
	driver := &fakeChatDriver{reply: "hello there"}
	retriever := &fakeChatRetriever{}
	logic := &ChatLogic{
		ctx:       authedContext("u1"),
		driver:    driver,
		guard:     &fakeChatGuard{result: types.QuotaCheckResult{Allowed: true}},
		retriever: retriever,
	}

	resp, err := logic.SendMessage(SendMessageRequest{Message: "hi", ConversationID: "c1"})

	assert.NoError(t, err)
	if assert.NotNil(t, resp) {
		assert.Equal(t, "hello there", resp.Response)
	}
	assert.Equal(t, 1, retriever.calls)
	// 检索结果为空时提示词不含上下文块
	if assert.Len(t, driver.messages, 2) {
		assert.Equal(t, DEFAULT_SYSTEM_PERSONA, driver.messages[0].Content)
		assert.Equal(t, "hi", driver.messages[1].Content)
	}
}

func Test_ChatLogic_EstimateCountsCurrentMessage(t *testing.T) {
	driver := &fakeChatDriver{}
	logic := &ChatLogic{ctx: context.Background(), driver: driver}

	req := SendMessageRequest{Message: "how do goroutines get scheduled onto operating system threads"}
	got := logic.estimateCost(DEFAULT_SYSTEM_PERSONA, req)

	want := ai.EstimateChatRequestCost(driver.ChatModel(), driver.EmbeddingModel(),
		[]openai.ChatCompletionMessage{
			{Role: types.USER_ROLE_SYSTEM, Content: DEFAULT_SYSTEM_PERSONA},
			{Role: types.USER_ROLE_USER, Content: req.Message},
		}, req.Message, driver.MaxCompletionTokens())
	assert.Equal(t, want, got)

	// 只算 system 不算当前消息的口径会系统性偏低
	without := ai.EstimateChatRequestCost(driver.ChatModel(), driver.EmbeddingModel(),
		[]openai.ChatCompletionMessage{
			{Role: types.USER_ROLE_SYSTEM, Content: DEFAULT_SYSTEM_PERSONA},
		}, req.Message, driver.MaxCompletionTokens())
	assert.Greater(t, got, without)
}

func Test_AssembleMessages_Order(t *testing.T) {
	history := []types.MessageContext{
		{Role: types.USER_ROLE_USER, Content: "earlier question"},
		{Role: types.USER_ROLE_ASSISTANT, Content: "earlier answer"},
	}

	messages := AssembleMessages("system prompt", "1. [user]: context line", history, "current question")

	if !assert.Len(t, messages, 5) {
		return
	}
	assert.Equal(t, types.USER_ROLE_SYSTEM, messages[0].Role)
	assert.Equal(t, "system prompt", messages[0].Content)
	assert.Equal(t, types.USER_ROLE_SYSTEM, messages[1].Role)
	assert.Equal(t, "1. [user]: context line", messages[1].Content)
	assert.Equal(t, "earlier question", messages[2].Content)
	assert.Equal(t, "earlier answer", messages[3].Content)
	assert.Equal(t, types.USER_ROLE_USER, messages[4].Role)
	assert.Equal(t, "current question", messages[4].Content)
}

func Test_AssembleMessages_NoContextBlock(t *testing.T) {
	messages := AssembleMessages(DEFAULT_SYSTEM_PERSONA, "", nil, "hi")

	if !assert.Len(t, messages, 2) {
		return
	}
	assert.Equal(t, DEFAULT_SYSTEM_PERSONA, messages[0].Content)
	assert.Equal(t, "You are a helpful AI assistant.", messages[0].Content)
	assert.Equal(t, "hi", messages[1].Content)
}
