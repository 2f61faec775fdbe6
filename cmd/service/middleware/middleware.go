package middleware

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"golang.org/x/text/language"

	"github.com/sagechat-ai/sagechat/app/core"
	v1 "github.com/sagechat-ai/sagechat/app/logic/v1"
	"github.com/sagechat-ai/sagechat/app/response"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/security"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func I18n() gin.HandlerFunc {
	var allowList []string
	for k := range i18n.ALLOW_LANG {
		allowList = append(allowList, k)
	}
	l := i18n.NewLocalizer(allowList...)

	return response.ProvideResponseLocalizer(l)
}

var langMatcher = language.NewMatcher(lo.Map(lo.Keys(i18n.ALLOW_LANG), func(item string, _ int) language.Tag {
	return language.Make(item)
}))

func AcceptLanguage() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.Request.Header.Get("Accept-Language")
		if header == "" {
			ctx.Set(v1.LANGUAGE_KEY, i18n.DEFAULT_LANG)
			return
		}
		tag, _ := language.MatchStrings(langMatcher, header)
		base, _ := tag.Base()
		ctx.Set(v1.LANGUAGE_KEY, base.String())
	}
}

const (
	ACCESS_TOKEN_HEADER_KEY = "X-Access-Token"
)

// Authorization 强制鉴权，令牌无效直接拒绝
func Authorization(core *core.Core) gin.HandlerFunc {
	tracePrefix := "middleware.Authorization"
	return func(ctx *gin.Context) {
		matched, err := checkAccessToken(ctx, core)
		if err != nil {
			response.APIError(ctx, errors.Trace(tracePrefix, err))
			return
		}

		if !matched {
			response.APIError(ctx, errors.New(tracePrefix, i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized))
		}
	}
}

// TryAuthorization 可选鉴权，匿名请求放行但不携带用户身份
func TryAuthorization(core *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, err := checkAccessToken(ctx, core); err != nil {
			response.APIError(ctx, errors.Trace("middleware.TryAuthorization", err))
		}
	}
}

func checkAccessToken(c *gin.Context, core *core.Core) (bool, error) {
	tokenValue := c.GetHeader(ACCESS_TOKEN_HEADER_KEY)
	if tokenValue == "" {
		return false, nil
	}

	return ParseAccessToken(c, tokenValue, core)
}

func ParseAccessToken(c *gin.Context, tokenValue string, core *core.Core) (bool, error) {
	token, err := lookupAccessToken(c, tokenValue, core)
	if err != nil {
		return false, err
	}

	if token == nil || token.ExpiresAt < time.Now().Unix() {
		return false, errors.New("ParseAccessToken.token.check", i18n.ERROR_UNAUTHORIZED, fmt.Errorf("invalid token")).Code(http.StatusUnauthorized)
	}

	c.Set(v1.TOKEN_CONTEXT_KEY, security.NewTokenClaims(token.UserID, token.Token, token.ExpiresAt))
	c.Set("user", token.UserID)
	return true, nil
}

// lookupAccessToken 优先读缓存，回源数据库后写回，缓存失败不影响鉴权
func lookupAccessToken(c *gin.Context, tokenValue string, core *core.Core) (*types.AccessToken, error) {
	cacheKey := "access_token:" + utils.MD5(tokenValue)
	if raw, err := core.Cache().Get(c, cacheKey); err == nil && raw != "" {
		var cached types.AccessToken
		if err = json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	token, err := core.Store().AccessTokenStore().GetAccessToken(c, tokenValue)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.New("ParseAccessToken.AccessTokenStore.GetAccessToken", i18n.ERROR_INTERNAL, err)
	}

	if raw, err := json.Marshal(token); err == nil {
		if err = core.Cache().SetEx(c, cacheKey, string(raw), time.Minute*10); err != nil {
			slog.Warn("access token cache write failed", slog.String("error", err.Error()))
		}
	}
	return token, nil
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-Access-Token")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
	}
	c.Next()
}

type LimiterFunc func(key string, opts ...core.LimitOption) gin.HandlerFunc

func UseLimit(appCore *core.Core, operation string, genKeyFunc func(c *gin.Context) string, opts ...core.LimitOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !appCore.UseLimiter(genKeyFunc(c), opts...).Allow() {
			response.APIError(c, errors.New("middleware.limiter."+operation, i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests))
		}
	}
}
