package v1

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/app/core/srv"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

type vectorAccessor interface {
	Create(ctx context.Context, data types.ConversationVector) error
	Query(ctx context.Context, userID, conversationID string, vector pgvector.Vector, limit uint64) ([]types.VectorQueryResult, error)
}

// Retriever 从会话历史向量中召回与当前提问相关的片段。
// 检索是增强而非前提，任何一步失败都返回空结果继续请求。
type Retriever struct {
	vectors vectorAccessor
	embed   srv.EmbeddingAI
	cfg     core.RetrievalConfig
}

func NewRetriever(vectors vectorAccessor, embed srv.EmbeddingAI, cfg core.RetrievalConfig) *Retriever {
	return &Retriever{
		vectors: vectors,
		embed:   embed,
		cfg:     cfg,
	}
}

// RetrieveResult 检索结果与其产生的向量化消耗
type RetrieveResult struct {
	Matches     []types.RetrievedMatch
	EmbedTokens int
	EmbedModel  string
}

// Retrieve 向量化提问并召回相似历史消息，按相似度过滤后降序返回
func (r *Retriever) Retrieve(ctx context.Context, userID, conversationID, query string) RetrieveResult {
	embedResult, err := r.embed.Embed(ctx, query)
	if err != nil {
		slog.Error("retrieval embedding failed, continuing without context",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return RetrieveResult{}
	}

	result := RetrieveResult{
		EmbedTokens: embedResult.Tokens,
		EmbedModel:  embedResult.Model,
	}

	rows, err := r.vectors.Query(ctx, userID, conversationID, pgvector.NewVector(embedResult.Vector), r.cfg.TopKOrDefault())
	if err != nil {
		slog.Error("retrieval vector query failed, continuing without context",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return result
	}

	minScore := r.cfg.MinScoreOrDefault()
	result.Matches = lo.FilterMap(rows, func(item types.VectorQueryResult, _ int) (types.RetrievedMatch, bool) {
		if item.Cos < minScore {
			return types.RetrievedMatch{}, false
		}
		return types.RetrievedMatch{
			ID:        item.ID,
			Score:     item.Cos,
			Content:   item.Content,
			Role:      item.Role,
			Timestamp: item.CreatedAt,
			MessageID: item.MessageID,
		}, true
	})
	return result
}

// StoreMessage 向量化并持久化一条会话消息，用于后续检索
func (r *Retriever) StoreMessage(ctx context.Context, userID, conversationID, messageID, role, content string) (*types.ConversationVector, error) {
	embedResult, err := r.embed.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	data := types.ConversationVector{
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Role:           role,
		Content:        content,
		Embedding:      pgvector.NewVector(embedResult.Vector),
		CreatedAt:      time.Now().Unix(),
	}
	if err = r.vectors.Create(ctx, data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FormatContext 将召回结果拼装成注入提示词的编号列表
func FormatContext(matches []types.RetrievedMatch) string {
	if len(matches) == 0 {
		return ""
	}
	lines := make([]string, 0, len(matches))
	for i, m := range matches {
		lines = append(lines, fmt.Sprintf("%d. [%s]: %s", i+1, m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}
