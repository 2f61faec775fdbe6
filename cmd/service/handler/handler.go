package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sagechat-ai/sagechat/app/core"
)

type HttpSrv struct {
	Core   *core.Core
	Engine *gin.Engine
}
