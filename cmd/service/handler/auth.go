package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/sagechat-ai/sagechat/app/logic/v1"
	"github.com/sagechat-ai/sagechat/app/response"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func (s *HttpSrv) CreateAccessToken(c *gin.Context) {
	claims, _ := v1.InjectTokenClaim(c)

	token, err := v1.NewAuthLogic(c, s.Core).CreateAccessToken(claims.User)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, map[string]any{
		"token": token,
	})
}

type DeleteAccessTokenRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

func (s *HttpSrv) DeleteAccessToken(c *gin.Context) {
	var req DeleteAccessTokenRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	claims, _ := v1.InjectTokenClaim(c)
	if err := v1.NewAuthLogic(c, s.Core).DeleteAccessToken(claims.User, req.Token); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}
