package service

import (
	"github.com/gin-gonic/gin"

	"github.com/sagechat-ai/sagechat/app/core"
	v1 "github.com/sagechat-ai/sagechat/app/logic/v1"
	"github.com/sagechat-ai/sagechat/app/response"
	"github.com/sagechat-ai/sagechat/cmd/service/handler"
	"github.com/sagechat-ai/sagechat/cmd/service/middleware"
	"github.com/sagechat-ai/sagechat/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func GetIPLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func GetUserLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			token, _ := v1.InjectTokenClaim(c)
			return key + ":" + token.User
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := GetIPLimitBuilder(s.Core)
	userLimit := GetUserLimitBuilder(s.Core)

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.AcceptLanguage())

	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	apiV1 := s.Engine.Group("/api/v1")
	{
		// 匿名可用，但匿名请求不记配额
		apiV1.POST("/chat", middleware.TryAuthorization(s.Core), ipLimit("chat"), s.SendMessage)

		templates := apiV1.Group("/templates")
		{
			templates.GET("", s.ListTemplates)
			templates.GET("/:id", s.GetTemplate)
		}

		authed := apiV1.Group("")
		authed.Use(middleware.Authorization(s.Core))

		usage := authed.Group("/usage")
		{
			usage.GET("", s.GetUsageStatus)
			usage.GET("/records", userLimit("usage_records"), s.ListUsageRecords)
			usage.GET("/breakdown", userLimit("usage_breakdown"), s.GetUsageBreakdown)
		}

		user := authed.Group("/user")
		{
			user.POST("/token", userLimit("create_token"), s.CreateAccessToken)
			user.DELETE("/token", s.DeleteAccessToken)
		}
	}
}
