package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/sagechat-ai/sagechat/app/logic/v1"
	"github.com/sagechat-ai/sagechat/app/response"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

type ListTemplatesRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"max=100"`
}

func (s *HttpSrv) ListTemplates(c *gin.Context) {
	var req ListTemplatesRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	list, err := v1.NewTemplateLogic(c, s.Core).ListTemplates(req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, map[string]any{
		"list": list,
	})
}

func (s *HttpSrv) GetTemplate(c *gin.Context) {
	id, _ := c.Params.Get("id")

	data, err := v1.NewTemplateLogic(c, s.Core).GetTemplate(id)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, data)
}
