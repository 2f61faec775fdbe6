package sqlstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sagechat-ai/sagechat/pkg/types"
)

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("SAGECHAT_POSTGRESQL_DSN")
}

func (m PGConfig) FormatDSN() string {
	return m.DSN
}

func setupTestProvider(t *testing.T) *Provider {
	cfg := PGConfig{}
	cfg.FromENV()
	if cfg.DSN == "" {
		t.Skip("SAGECHAT_POSTGRESQL_DSN not set")
	}
	return MustSetup(cfg)()
}

func TestSumUserCost(t *testing.T) {
	provider := setupTestProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	userID := "test-user-sum"
	now := time.Now()
	records := []types.UsageRecord{
		{Service: types.SERVICE_MODEL_PROVIDER, Operation: types.OPERATION_COMPLETION, Model: "gpt-4o-mini", UserID: userID, InputTokens: 100, OutputTokens: 50, TotalTokens: 150, EstimatedCost: 0.002, CreatedAt: now.Unix()},
		{Service: types.SERVICE_MODEL_PROVIDER, Operation: types.OPERATION_EMBEDDING, Model: "text-embedding-3-small", UserID: userID, InputTokens: 20, TotalTokens: 20, EstimatedCost: 0.001, CreatedAt: now.Unix()},
	}
	for _, r := range records {
		if err := provider.stores.UsageRecordStore.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	cost, err := provider.stores.UsageRecordStore.SumUserCost(ctx, userID, now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if cost < 0.003 {
		t.Fatalf("expected summed cost >= 0.003, got %f", cost)
	}

	summary, err := provider.stores.UsageRecordStore.SumUserCostByOperation(ctx, userID, now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	t.Log(summary)
}
