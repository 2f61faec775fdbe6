package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/sagechat-ai/sagechat/app/logic/v1"
	"github.com/sagechat-ai/sagechat/app/response"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func (s *HttpSrv) SendMessage(c *gin.Context) {
	var req v1.SendMessageRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	timer := s.Core.Metrics().ApiResponseTimer("/api/v1/chat")
	defer timer.ObserveDuration()

	result, err := v1.NewChatLogic(c, s.Core).SendMessage(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, result)
}
