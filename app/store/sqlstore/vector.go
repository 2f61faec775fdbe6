package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"

	"github.com/sagechat-ai/sagechat/pkg/register"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.ConversationVectorStore = NewConversationVectorStore(provider)
	})
}

type ConversationVectorStore struct {
	CommonFields
}

func NewConversationVectorStore(provider SqlProviderAchieve) *ConversationVectorStore {
	repo := &ConversationVectorStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_CONVERSATION_VECTOR)
	repo.SetAllColumns("id", "user_id", "conversation_id", "message_id", "role", "content", "embedding", "created_at")
	return repo
}

func (s *ConversationVectorStore) Create(ctx context.Context, data types.ConversationVector) error {
	if data.ID == "" {
		data.ID = utils.GenUniqIDStr()
	}
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	query := sq.Insert(s.GetTable()).
		Columns("id", "user_id", "conversation_id", "message_id", "role", "content", "embedding", "created_at").
		Values(data.ID, data.UserID, data.ConversationID, data.MessageID, data.Role, data.Content, data.Embedding, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Query 按余弦相似度检索会话向量
func (s *ConversationVectorStore) Query(ctx context.Context, userID, conversationID string, vectors pgvector.Vector, limit uint64) ([]types.VectorQueryResult, error) {
	// pgvector supported distance functions are:
	// <-> - L2 distance
	// <#> - (negative) inner product
	// <=> - cosine distance
	// <+> - L1 distance (added in 0.7.0)
	cosColum, vectorArgs, _ := sq.Expr("1 - (embedding <=> ?) as cos", vectors).ToSql()
	query := sq.Select("id", "message_id", "role", "content", "created_at", cosColum).From(s.GetTable()).
		Where(sq.Eq{"user_id": userID, "conversation_id": conversationID}).
		Limit(limit).OrderBy("cos DESC")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	args = append(vectorArgs, args...)

	var res []types.VectorQueryResult
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ConversationVectorStore) DeleteByConversation(ctx context.Context, userID, conversationID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"user_id": userID, "conversation_id": conversationID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
