package v1

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

type AuthLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewAuthLogic(ctx context.Context, core *core.Core) *AuthLogic {
	return &AuthLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *AuthLogic) GetAccessTokenDetail(token string) (*types.AccessToken, error) {
	data, err := l.core.Store().AccessTokenStore().GetAccessToken(l.ctx, token)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("AuthLogic.GetAccessTokenDetail.AccessTokenStore.GetAccessToken", i18n.ERROR_INTERNAL, err)
	}

	return data, nil
}

// CreateAccessToken 为用户签发一个新的访问令牌
func (l *AuthLogic) CreateAccessToken(userID string) (string, error) {
	tokenStore := l.core.Store().AccessTokenStore()

	var accessToken string
REGEN:
	accessToken = utils.RandomStr(100)
	exist, err := tokenStore.GetAccessToken(l.ctx, accessToken)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.New("AuthLogic.CreateAccessToken.GetAccessToken", i18n.ERROR_INTERNAL, err)
	}
	if exist != nil {
		goto REGEN
	}

	err = tokenStore.Create(l.ctx, types.AccessToken{
		UserID:    userID,
		Token:     accessToken,
		ExpiresAt: time.Now().AddDate(1, 0, 0).Unix(),
	})
	if err != nil {
		return "", errors.New("AuthLogic.CreateAccessToken.Create", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}

	return accessToken, nil
}

func (l *AuthLogic) DeleteAccessToken(userID, token string) error {
	if err := l.core.Store().AccessTokenStore().Delete(l.ctx, userID, token); err != nil {
		return errors.New("AuthLogic.DeleteAccessToken.Delete", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	return nil
}
