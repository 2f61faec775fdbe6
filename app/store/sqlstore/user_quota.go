package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sagechat-ai/sagechat/pkg/register"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.UserQuotaStore = NewUserQuotaStore(provider)
	})
}

type UserQuotaStore struct {
	CommonFields
}

func NewUserQuotaStore(provider SqlProviderAchieve) *UserQuotaStore {
	repo := &UserQuotaStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_USER_QUOTA)
	repo.SetAllColumns("user_id", "daily_limit", "monthly_limit", "current_daily", "current_monthly",
		"last_reset_daily", "last_reset_monthly", "created_at", "updated_at")
	return repo
}

func (s *UserQuotaStore) Get(ctx context.Context, userID string) (*types.UserQuota, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.UserQuota
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// Create 懒初始化用户配额，零值额度回落到默认值
func (s *UserQuotaStore) Create(ctx context.Context, data types.UserQuota) error {
	if data.DailyLimit == 0 {
		data.DailyLimit = types.DEFAULT_DAILY_LIMIT
	}
	if data.MonthlyLimit == 0 {
		data.MonthlyLimit = types.DEFAULT_MONTHLY_LIMIT
	}
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = now
	}
	if data.LastResetDaily == 0 {
		data.LastResetDaily = now
	}
	if data.LastResetMonthly == 0 {
		data.LastResetMonthly = now
	}
	query := sq.Insert(s.GetTable()).
		Columns("user_id", "daily_limit", "monthly_limit", "current_daily", "current_monthly",
			"last_reset_daily", "last_reset_monthly", "created_at", "updated_at").
		Values(data.UserID, data.DailyLimit, data.MonthlyLimit, data.CurrentDaily, data.CurrentMonthly,
			data.LastResetDaily, data.LastResetMonthly, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// UpdateSnapshot 刷新展示用的消费快照，额度判定不读这两个字段
func (s *UserQuotaStore) UpdateSnapshot(ctx context.Context, userID string, daily, monthly float64, resetDaily, resetMonthly int64) error {
	query := sq.Update(s.GetTable()).
		Set("current_daily", daily).
		Set("current_monthly", monthly).
		Set("last_reset_daily", resetDaily).
		Set("last_reset_monthly", resetMonthly).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
