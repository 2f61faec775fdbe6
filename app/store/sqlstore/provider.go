package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/sagechat-ai/sagechat/app/store"
	"github.com/sagechat-ai/sagechat/pkg/register"
	"github.com/sagechat-ai/sagechat/pkg/sqlstore"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

//go:embed migrations/*.sql
var CreateTableFiles embed.FS

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

var provider = &Provider{
	stores: &Stores{},
}

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores
}

type Stores struct {
	store.UsageRecordStore
	store.UserQuotaStore
	store.ConversationVectorStore
	store.PromptTemplateStore
	store.AccessTokenStore
}

type RegisterKey struct{}

func MustSetup(m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) func() *Provider {
	provider.SqlProvider = sqlstore.MustSetupProvider(m, s...)

	for _, f := range register.ResolveFuncHandlers[*Provider](RegisterKey{}) {
		f(provider)
	}

	return func() *Provider {
		return provider
	}
}

// Install 初始化数据库扩展与数据表，每个迁移文件只执行一次
func (p *Provider) Install() error {
	if err := p.enableExtensions(); err != nil {
		return err
	}

	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := CreateTableFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		if executed, err := p.isFileExecuted(file.Name()); err != nil {
			return err
		} else if executed {
			continue
		}

		raw, err := CreateTableFiles.ReadFile("migrations/" + file.Name())
		if err != nil {
			return err
		}

		if _, err = p.SqlProvider.GetMaster().Exec(string(raw)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file.Name(), err)
		}

		if err = p.markFileExecuted(file.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) enableExtensions() error {
	extensions := []string{
		"CREATE EXTENSION IF NOT EXISTS vector;", // pgvector, similarity search
	}

	for _, ext := range extensions {
		if _, err := p.SqlProvider.GetMaster().Exec(ext); err != nil {
			return fmt.Errorf("failed to enable extension: %w\nSQL: %s", err, ext)
		}
	}
	return nil
}

func (p *Provider) ensureMigrationTable() error {
	createTableSQL := `
CREATE TABLE IF NOT EXISTS ` + types.TABLE_PREFIX + `schema_migrations (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`
	_, err := p.SqlProvider.GetMaster().Exec(createTableSQL)
	return err
}

func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.SqlProvider.GetReplica().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_PREFIX+"schema_migrations WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Provider) markFileExecuted(filename string) error {
	_, err := p.SqlProvider.GetMaster().Exec(
		"INSERT INTO "+types.TABLE_PREFIX+"schema_migrations (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		filename, time.Now().Unix())
	return err
}

// SeedDefaultTemplates 初始化内置提示词模板，已存在则跳过
func (p *Provider) SeedDefaultTemplates(ctx context.Context) error {
	defaults := []types.PromptTemplate{
		{
			ID:      "default-assistant",
			Name:    "Default Assistant",
			Content: "You are a helpful AI assistant.",
		},
		{
			ID:        "custom-persona",
			Name:      "Custom Persona",
			Content:   "You are a {{tone}} assistant. Focus on {{topic}}.",
			Variables: []byte(`[{"name":"tone","required":true},{"name":"topic","required":true}]`),
		},
	}

	return p.Transaction(ctx, func(ctx context.Context) error {
		for _, tpl := range defaults {
			if _, err := p.stores.PromptTemplateStore.Get(ctx, tpl.ID); err == nil {
				continue
			} else if err != sql.ErrNoRows {
				return err
			}
			if err := p.stores.PromptTemplateStore.Create(ctx, tpl); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Provider) UsageRecordStore() store.UsageRecordStore {
	return p.stores.UsageRecordStore
}

func (p *Provider) UserQuotaStore() store.UserQuotaStore {
	return p.stores.UserQuotaStore
}

func (p *Provider) ConversationVectorStore() store.ConversationVectorStore {
	return p.stores.ConversationVectorStore
}

func (p *Provider) PromptTemplateStore() store.PromptTemplateStore {
	return p.stores.PromptTemplateStore
}

func (p *Provider) AccessTokenStore() store.AccessTokenStore {
	return p.stores.AccessTokenStore
}
