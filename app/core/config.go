package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sagechat-ai/sagechat/app/core/srv"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	conf.SetConfigBytes(raw)

	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	if err := toml.Unmarshal(c.bytes, cfg); err != nil {
		return err
	}
	return nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr     string      `toml:"addr"`
	Log      Log         `toml:"log"`
	Postgres PGConfig    `toml:"postgres"`
	Redis    RedisConfig `toml:"redis"`

	AI        srv.AIConfig    `toml:"ai"`
	Quota     QuotaConfig     `toml:"quota"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	RateLimit RateLimitConfig `toml:"rate_limit"`

	bytes []byte `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("SAGECHAT_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.AI.FromENV()
}

// QuotaConfig 默认消费上限，用户行缺失时懒创建使用
type QuotaConfig struct {
	DailyLimit   float64 `toml:"daily_limit"`
	MonthlyLimit float64 `toml:"monthly_limit"`
}

func (q QuotaConfig) DailyOrDefault() float64 {
	if q.DailyLimit > 0 {
		return q.DailyLimit
	}
	return types.DEFAULT_DAILY_LIMIT
}

func (q QuotaConfig) MonthlyOrDefault() float64 {
	if q.MonthlyLimit > 0 {
		return q.MonthlyLimit
	}
	return types.DEFAULT_MONTHLY_LIMIT
}

// RetrievalConfig 会话上下文检索参数
type RetrievalConfig struct {
	TopK     uint64  `toml:"top_k"`     // 默认 5
	MinScore float64 `toml:"min_score"` // 余弦相似度下限，默认 0.7
}

func (r RetrievalConfig) TopKOrDefault() uint64 {
	if r.TopK > 0 {
		return r.TopK
	}
	return 5
}

func (r RetrievalConfig) MinScoreOrDefault() float64 {
	if r.MinScore > 0 {
		return r.MinScore
	}
	return 0.7
}

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`   // 每秒请求数上限，0 表示关闭
	Burst int     `toml:"burst"` // 突发容量
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("SAGECHAT_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	KeyPrefix string `toml:"key_prefix"`
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("SAGECHAT_REDIS_ADDR")
	r.Password = os.Getenv("SAGECHAT_REDIS_PASSWORD")
	if dbStr := os.Getenv("SAGECHAT_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("SAGECHAT_LOG_LEVEL")
	l.Path = os.Getenv("SAGECHAT_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
