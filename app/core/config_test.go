package core

import (
	"os"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"

	"github.com/sagechat-ai/sagechat/pkg/types"
)

func TestSetupConfigFromEnv(t *testing.T) {
	addr := "localhost:11111"
	os.Setenv("SAGECHAT_SERVICE_ADDRESS", addr)

	cfg := LoadBaseConfigFromENV()

	assert.Equal(t, cfg.Addr, addr)
}

func TestQuotaConfigDefaults(t *testing.T) {
	var cfg QuotaConfig
	assert.Equal(t, types.DEFAULT_DAILY_LIMIT, cfg.DailyOrDefault())
	assert.Equal(t, types.DEFAULT_MONTHLY_LIMIT, cfg.MonthlyOrDefault())

	raw := `
[quota]
daily_limit = 0.1
monthly_limit = 2.0

[retrieval]
top_k = 3
min_score = 0.8
`
	var conf CoreConfig
	assert.NoError(t, toml.Unmarshal([]byte(raw), &conf))
	assert.Equal(t, 0.1, conf.Quota.DailyOrDefault())
	assert.Equal(t, 2.0, conf.Quota.MonthlyOrDefault())
	assert.Equal(t, uint64(3), conf.Retrieval.TopKOrDefault())
	assert.Equal(t, 0.8, conf.Retrieval.MinScoreOrDefault())
}
