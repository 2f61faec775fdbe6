package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sagechat-ai/sagechat/pkg/register"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.PromptTemplateStore = NewPromptTemplateStore(provider)
	})
}

type PromptTemplateStore struct {
	CommonFields
}

func NewPromptTemplateStore(provider SqlProviderAchieve) *PromptTemplateStore {
	repo := &PromptTemplateStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_PROMPT_TEMPLATE)
	repo.SetAllColumns("id", "name", "content", "variables", "created_at", "updated_at")
	return repo
}

func (s *PromptTemplateStore) Get(ctx context.Context, id string) (*types.PromptTemplate, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.PromptTemplate
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PromptTemplateStore) Create(ctx context.Context, data types.PromptTemplate) error {
	if data.ID == "" {
		data.ID = utils.GenUniqIDStr()
	}
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = now
	}
	if len(data.Variables) == 0 {
		data.Variables = []byte("[]")
	}
	query := sq.Insert(s.GetTable()).
		Columns("id", "name", "content", "variables", "created_at", "updated_at").
		Values(data.ID, data.Name, data.Content, data.Variables, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *PromptTemplateStore) List(ctx context.Context, page, pageSize uint64) ([]types.PromptTemplate, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		OrderBy("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.PromptTemplate
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PromptTemplateStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
