package store

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/sagechat-ai/sagechat/pkg/sqlstore"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

// UsageRecordStore 账本，append-only，系统内所有消费决策的唯一数据来源
type UsageRecordStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.UsageRecord) error
	// SumUserCost 按时间窗口汇总用户消费
	SumUserCost(ctx context.Context, userID string, st, et time.Time) (float64, error)
	SumUserCostByOperation(ctx context.Context, userID string, st, et time.Time) ([]types.OperationCostSummary, error)
	ListActiveUsers(ctx context.Context, st, et time.Time) ([]string, error)
	List(ctx context.Context, userID string, page, pageSize uint64) ([]types.UsageRecord, error)
}

// UserQuotaStore 用户配额行，快照字段仅用于展示
type UserQuotaStore interface {
	sqlstore.SqlCommons
	Get(ctx context.Context, userID string) (*types.UserQuota, error)
	Create(ctx context.Context, data types.UserQuota) error
	UpdateSnapshot(ctx context.Context, userID string, daily, monthly float64, lastResetDaily, lastResetMonthly int64) error
}

type ConversationVectorStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.ConversationVector) error
	Query(ctx context.Context, userID, conversationID string, vector pgvector.Vector, limit uint64) ([]types.VectorQueryResult, error)
	DeleteByConversation(ctx context.Context, userID, conversationID string) error
}

type PromptTemplateStore interface {
	sqlstore.SqlCommons
	Get(ctx context.Context, id string) (*types.PromptTemplate, error)
	Create(ctx context.Context, data types.PromptTemplate) error
	List(ctx context.Context, page, pageSize uint64) ([]types.PromptTemplate, error)
	Delete(ctx context.Context, id string) error
}

type AccessTokenStore interface {
	sqlstore.SqlCommons
	GetAccessToken(ctx context.Context, token string) (*types.AccessToken, error)
	Create(ctx context.Context, data types.AccessToken) error
	Delete(ctx context.Context, userID, token string) error
}
