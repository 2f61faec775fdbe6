package core

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sagechat-ai/sagechat/app/core/srv"
	"github.com/sagechat-ai/sagechat/app/store/sqlstore"
	"github.com/sagechat-ai/sagechat/pkg/cache"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	cache      types.Cache
	httpClient *http.Client
	httpEngine *gin.Engine

	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Second * 3},
		metrics:    NewMetrics("sagechat", "core"),
		httpEngine: gin.New(),
	}

	setupSqlStore(core)
	setupCache(core)

	core.srv = srv.SetupSrvs(srv.ApplyAI(cfg.AI))

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	if err := core.stores().SeedDefaultTemplates(context.Background()); err != nil {
		panic(err)
	}
}

// setupCache redis 未配置时退化为空实现，令牌校验每次回源数据库
func setupCache(core *Core) {
	if core.cfg.Redis.Addr == "" {
		core.cache = &cache.NoopCache{}
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     core.cfg.Redis.Addr,
		Password: core.cfg.Redis.Password,
		DB:       core.cfg.Redis.DB,
	})
	core.cache = cache.NewRedisCache(client, core.cfg.Redis.KeyPrefix)
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Cache() types.Cache {
	return s.cache
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}
