package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/app/core/srv"
	"github.com/sagechat-ai/sagechat/app/logic/v1/process"
	"github.com/sagechat-ai/sagechat/pkg/ai"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

// DEFAULT_SYSTEM_PERSONA 未指定模板时的系统提示词
const DEFAULT_SYSTEM_PERSONA = "You are a helpful AI assistant."

type quotaChecker interface {
	CheckLimits(ctx context.Context, userID string, estimatedCost float64) types.QuotaCheckResult
}

type conversationRetriever interface {
	Retrieve(ctx context.Context, userID, conversationID, query string) RetrieveResult
}

type promptResolver interface {
	ResolveSystemPrompt(templateID string, variables map[string]string) (string, error)
}

type chatMetrics interface {
	RetrievalTimer() *prometheus.Timer
	ModelRequestTimer(operation string) *prometheus.Timer
	ModelErrorInc(operation string)
}

type ChatLogic struct {
	ctx context.Context

	driver    srv.AIDriver
	guard     quotaChecker
	retriever conversationRetriever
	templates promptResolver
	metrics   chatMetrics
}

func NewChatLogic(ctx context.Context, core *core.Core) *ChatLogic {
	return &ChatLogic{
		ctx:    ctx,
		driver: core.Srv().AI(),
		guard: NewQuotaGuard(core.Store().UsageRecordStore(), core.Store().UserQuotaStore(),
			core.Cfg().Quota, core.Metrics()),
		retriever: NewRetriever(core.Store().ConversationVectorStore(), core.Srv().AI(), core.Cfg().Retrieval),
		templates: NewTemplateLogic(ctx, core),
		metrics:   core.Metrics(),
	}
}

type SendMessageRequest struct {
	Message             string                 `json:"message" binding:"required"`
	TemplateID          string                 `json:"template_id"`
	TemplateVariables   map[string]string      `json:"template_variables"`
	ConversationID      string                 `json:"conversation_id"`
	ConversationHistory []types.MessageContext `json:"conversation_history"`
}

type SendMessageResponse struct {
	Response   string       `json:"response"`
	TemplateID string       `json:"template_id,omitempty"`
	Metadata   ChatMetadata `json:"metadata"`
}

type ChatMetadata struct {
	Model            string `json:"model"`
	TokensUsed       int    `json:"tokens_used"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// SendMessage 处理一轮聊天：
// 估算成本 → 额度判定 → 检索上下文 → 组装提示词 → 调用补全 → 旁路记账与入库。
func (l *ChatLogic) SendMessage(req SendMessageRequest) (*SendMessageResponse, error) {
	started := time.Now()

	if req.Message == "" {
		return nil, errors.New("ChatLogic.SendMessage.EmptyMessage", i18n.ERROR_INVALIDARGUMENT,
			fmt.Errorf("message is required")).Code(http.StatusBadRequest)
	}

	systemPrompt := DEFAULT_SYSTEM_PERSONA
	if req.TemplateID != "" {
		rendered, err := l.templates.ResolveSystemPrompt(req.TemplateID, req.TemplateVariables)
		if err != nil {
			return nil, err
		}
		systemPrompt = rendered
	}

	claims, authed := InjectTokenClaim(l.ctx)
	userID := claims.GetUser()

	estimatedCost := l.estimateCost(systemPrompt, req)

	if authed && userID != "" {
		check := l.guard.CheckLimits(l.ctx, userID, estimatedCost)
		if !check.Allowed {
			return nil, errors.New("ChatLogic.SendMessage.QuotaExceeded", i18n.ERROR_QUOTA_EXCEEDED,
				fmt.Errorf("%s", check.Reason)).Code(http.StatusTooManyRequests).WithData(check)
		}
	}

	// 检索失败只会得到空结果，不会中断本次请求
	var retrieved RetrieveResult
	if authed && userID != "" && req.ConversationID != "" {
		timer := l.retrievalTimer()
		retrieved = l.retriever.Retrieve(l.ctx, userID, req.ConversationID, req.Message)
		observe(timer)
	}

	messages := AssembleMessages(systemPrompt, FormatContext(retrieved.Matches), req.ConversationHistory, req.Message)

	timer := l.modelTimer(types.OPERATION_COMPLETION)
	result, err := l.driver.Chat(l.ctx, messages)
	observe(timer)
	if err != nil {
		l.modelErrorInc(types.OPERATION_COMPLETION)
		return nil, errors.Trace("ChatLogic.SendMessage.Chat", err).Code(http.StatusBadGateway)
	}
	if result.Content == "" {
		l.modelErrorInc(types.OPERATION_COMPLETION)
		return nil, errors.New("ChatLogic.SendMessage.EmptyReply", i18n.ERROR_AI_UNAVAILABLE,
			fmt.Errorf("completion returned empty reply")).Code(http.StatusBadGateway)
	}

	l.dispatchSideEffects(userID, req, result, retrieved)

	return &SendMessageResponse{
		Response:   result.Content,
		TemplateID: req.TemplateID,
		Metadata: ChatMetadata{
			Model:            result.Model,
			TokensUsed:       result.TotalTokens,
			ProcessingTimeMs: time.Since(started).Milliseconds(),
		},
	}, nil
}

func (l *ChatLogic) retrievalTimer() *prometheus.Timer {
	if l.metrics == nil {
		return nil
	}
	return l.metrics.RetrievalTimer()
}

func (l *ChatLogic) modelTimer(operation string) *prometheus.Timer {
	if l.metrics == nil {
		return nil
	}
	return l.metrics.ModelRequestTimer(operation)
}

func (l *ChatLogic) modelErrorInc(operation string) {
	if l.metrics != nil {
		l.metrics.ModelErrorInc(operation)
	}
}

func observe(timer *prometheus.Timer) {
	if timer != nil {
		timer.ObserveDuration()
	}
}

// estimateCost 预估一次完整聊天的花销：
// 一次补全、一次查询向量化、回复后的两次入库向量化和一次相似检索
func (l *ChatLogic) estimateCost(systemPrompt string, req SendMessageRequest) float64 {
	candidates := make([]openai.ChatCompletionMessage, 0, len(req.ConversationHistory)+2)
	candidates = append(candidates, openai.ChatCompletionMessage{Role: types.USER_ROLE_SYSTEM, Content: systemPrompt})
	for _, item := range req.ConversationHistory {
		candidates = append(candidates, openai.ChatCompletionMessage{Role: item.Role, Content: item.Content})
	}
	// 当前这条消息同样会进入补全请求的 prompt
	candidates = append(candidates, openai.ChatCompletionMessage{Role: types.USER_ROLE_USER, Content: req.Message})

	return ai.EstimateChatRequestCost(l.driver.ChatModel(), l.driver.EmbeddingModel(),
		candidates, req.Message, l.driver.MaxCompletionTokens())
}

// dispatchSideEffects 派发旁路任务，全部 fire-and-forget
func (l *ChatLogic) dispatchSideEffects(userID string, req SendMessageRequest, result *ai.ChatResult, retrieved RetrieveResult) {
	// 补全按返回的真实用量记账，覆盖预估值
	process.NewRecordUsageRequest(types.UsageRecord{
		Service:        types.SERVICE_MODEL_PROVIDER,
		Operation:      types.OPERATION_COMPLETION,
		Model:          result.Model,
		UserID:         userID,
		ConversationID: req.ConversationID,
		InputTokens:    result.PromptTokens,
		OutputTokens:   result.CompletionTokens,
		TotalTokens:    result.TotalTokens,
		EstimatedCost:  ai.ChatCost(result.Model, result.PromptTokens, result.CompletionTokens),
	})

	if retrieved.EmbedTokens > 0 {
		process.NewRecordUsageRequest(types.UsageRecord{
			Service:        types.SERVICE_MODEL_PROVIDER,
			Operation:      types.OPERATION_EMBEDDING,
			Model:          retrieved.EmbedModel,
			UserID:         userID,
			ConversationID: req.ConversationID,
			InputTokens:    retrieved.EmbedTokens,
			TotalTokens:    retrieved.EmbedTokens,
			EstimatedCost:  ai.EmbeddingCost(retrieved.EmbedModel, retrieved.EmbedTokens),
		})
		process.NewRecordUsageRequest(types.UsageRecord{
			Service:        types.SERVICE_VECTOR_STORE,
			Operation:      types.OPERATION_VECTOR_QUERY,
			UserID:         userID,
			ConversationID: req.ConversationID,
			EstimatedCost:  ai.VectorOpCost(types.OPERATION_VECTOR_QUERY),
		})
	}

	if userID != "" && req.ConversationID != "" {
		process.NewStoreVectorRequest(userID, req.ConversationID, utils.GenUniqIDStr(), types.USER_ROLE_USER, req.Message)
		process.NewStoreVectorRequest(userID, req.ConversationID, utils.GenUniqIDStr(), types.USER_ROLE_ASSISTANT, result.Content)
	}

	if userID != "" {
		process.NewRefreshQuotaRequest(userID)
	}
}

// AssembleMessages 固定顺序组装提示词：系统 → 检索上下文 → 历史 → 当前消息
func AssembleMessages(systemPrompt, contextBlock string, history []types.MessageContext, userMessage string) []types.MessageContext {
	messages := make([]types.MessageContext, 0, len(history)+3)
	messages = append(messages, types.MessageContext{
		Role:    types.USER_ROLE_SYSTEM,
		Content: systemPrompt,
	})
	if contextBlock != "" {
		messages = append(messages, types.MessageContext{
			Role:    types.USER_ROLE_SYSTEM,
			Content: contextBlock,
		})
	}
	messages = append(messages, history...)
	messages = append(messages, types.MessageContext{
		Role:    types.USER_ROLE_USER,
		Content: userMessage,
	})
	return messages
}
