package process

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/sagechat-ai/sagechat/pkg/register"
	"github.com/sagechat-ai/sagechat/pkg/safe"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		// 每天凌晨将活跃用户的配额快照校正到账本聚合值
		p.Cron().AddFunc("30 0 * * *", func() {
			safe.Run(func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute*5)
				defer cancel()
				ReconcileActiveUsers(ctx)
			})
		})
	})
}

// ReconcileActiveUsers 遍历本月产生过消费的用户，逐个派发快照刷新
func ReconcileActiveUsers(ctx context.Context) error {
	if sideEffectProcess == nil {
		return nil
	}

	now := time.Now()
	users, err := sideEffectProcess.core.Store().UsageRecordStore().ListActiveUsers(ctx, utils.MonthStart(now), now)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("quota reconcile failed to list active users", slog.String("error", err.Error()))
		return err
	}

	for _, userID := range users {
		NewRefreshQuotaRequest(userID)
	}

	slog.Info("quota reconcile dispatched", slog.Int("users", len(users)))
	return nil
}
