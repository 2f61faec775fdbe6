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

type UsageLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewUsageLogic(ctx context.Context, core *core.Core) *UsageLogic {
	return &UsageLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *UsageLogic) ListRecords(userID string, page, pageSize uint64) ([]types.UsageRecord, error) {
	list, err := l.core.Store().UsageRecordStore().List(l.ctx, userID, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("UsageLogic.ListRecords.UsageRecordStore.List", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	return list, nil
}

// GetOperationBreakdown 当月消费按操作类型聚合
func (l *UsageLogic) GetOperationBreakdown(userID string) ([]types.OperationCostSummary, error) {
	now := time.Now()
	list, err := l.core.Store().UsageRecordStore().SumUserCostByOperation(l.ctx, userID, utils.MonthStart(now), now)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("UsageLogic.GetOperationBreakdown.SumUserCostByOperation", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	return list, nil
}
