package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/sagechat-ai/sagechat/app/logic/v1"
	"github.com/sagechat-ai/sagechat/app/response"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func (s *HttpSrv) GetUsageStatus(c *gin.Context) {
	claims, exists := v1.InjectTokenClaim(c)
	if !exists || claims.User == "" {
		response.APIError(c, errors.New("HttpSrv.GetUsageStatus.Unauthorized", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized))
		return
	}

	status, err := v1.NewQuotaLogic(c, s.Core).GetUsageStatus(claims.User)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, status)
}

type ListUsageRecordsRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"max=100"`
}

func (s *HttpSrv) ListUsageRecords(c *gin.Context) {
	var req ListUsageRecordsRequest
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

	claims, _ := v1.InjectTokenClaim(c)
	list, err := v1.NewUsageLogic(c, s.Core).ListRecords(claims.User, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, map[string]any{
		"list": list,
	})
}

func (s *HttpSrv) GetUsageBreakdown(c *gin.Context) {
	claims, _ := v1.InjectTokenClaim(c)
	list, err := v1.NewUsageLogic(c, s.Core).GetOperationBreakdown(claims.User)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, map[string]any{
		"list": list,
	})
}
