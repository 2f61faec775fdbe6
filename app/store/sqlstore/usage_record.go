package sqlstore

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sagechat-ai/sagechat/pkg/register"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.UsageRecordStore = NewUsageRecordStore(provider)
	})
}

type UsageRecordStore struct {
	CommonFields
}

// NewUsageRecordStore 创建新的 UsageRecordStore 实例
func NewUsageRecordStore(provider SqlProviderAchieve) *UsageRecordStore {
	repo := &UsageRecordStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_USAGE_RECORD)
	repo.SetAllColumns("id", "service", "operation", "model", "user_id", "conversation_id",
		"input_tokens", "output_tokens", "total_tokens", "estimated_cost", "created_at")
	return repo
}

// Create 追加一条消费记录，账本只增不改
func (s *UsageRecordStore) Create(ctx context.Context, data types.UsageRecord) error {
	if data.ID == "" {
		data.ID = utils.GenUniqIDStr()
	}
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	query := sq.Insert(s.GetTable()).
		Columns("id", "service", "operation", "model", "user_id", "conversation_id",
			"input_tokens", "output_tokens", "total_tokens", "estimated_cost", "created_at").
		Values(data.ID, data.Service, data.Operation, data.Model, data.UserID, data.ConversationID,
			data.InputTokens, data.OutputTokens, data.TotalTokens, data.EstimatedCost, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return err
	}
	return nil
}

// SumUserCost 汇总用户在时间窗口内的实际消费
func (s *UsageRecordStore) SumUserCost(ctx context.Context, userID string, st, et time.Time) (float64, error) {
	query := sq.Select("COALESCE(SUM(estimated_cost), 0) as cost").From(s.GetTable()).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.And{sq.GtOrEq{"created_at": st.Unix()}, sq.LtOrEq{"created_at": et.Unix()}})

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var cost float64
	if err = s.GetReplica(ctx).Get(&cost, queryString, args...); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return cost, nil
}

func (s *UsageRecordStore) SumUserCostByOperation(ctx context.Context, userID string, st, et time.Time) ([]types.OperationCostSummary, error) {
	query := sq.Select("operation", "COALESCE(SUM(estimated_cost), 0) as cost", "COUNT(*) as records").From(s.GetTable()).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.And{sq.GtOrEq{"created_at": st.Unix()}, sq.LtOrEq{"created_at": et.Unix()}}).
		GroupBy("operation")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.OperationCostSummary
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// ListActiveUsers 列出时间窗口内产生过消费的用户，用于夜间对账
func (s *UsageRecordStore) ListActiveUsers(ctx context.Context, st, et time.Time) ([]string, error) {
	query := sq.Select("DISTINCT user_id").From(s.GetTable()).
		Where(sq.NotEq{"user_id": ""}).
		Where(sq.And{sq.GtOrEq{"created_at": st.Unix()}, sq.LtOrEq{"created_at": et.Unix()}})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []string
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// List 分页获取用户消费记录
func (s *UsageRecordStore) List(ctx context.Context, userID string, page, pageSize uint64) ([]types.UsageRecord, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.UsageRecord
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
