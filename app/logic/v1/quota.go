package v1

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

// usageSummer 账本聚合视图，额度判定只依赖这一个数据来源
type usageSummer interface {
	SumUserCost(ctx context.Context, userID string, st, et time.Time) (float64, error)
}

type quotaAccessor interface {
	Get(ctx context.Context, userID string) (*types.UserQuota, error)
	Create(ctx context.Context, data types.UserQuota) error
	UpdateSnapshot(ctx context.Context, userID string, daily, monthly float64, lastResetDaily, lastResetMonthly int64) error
}

type rejectionCounter interface {
	QuotaRejectionInc(window string)
}

// 金额是 float64 累加的结果，比较时容忍尾数舍入，
// 刚好等于上限的投影不能因为 0.035+0.01 多出的尾数被拒。
const costEpsilon = 1e-9

// QuotaGuard 请求前的消费额度闸门。
// 判定只读账本实时聚合，配额行上的快照字段仅供展示。
// 内部出错时放行请求，额度控制不能成为服务可用性的单点。
type QuotaGuard struct {
	records  usageSummer
	quotas   quotaAccessor
	defaults core.QuotaConfig
	metrics  rejectionCounter
	now      func() time.Time
}

func NewQuotaGuard(records usageSummer, quotas quotaAccessor, defaults core.QuotaConfig, metrics rejectionCounter) *QuotaGuard {
	return &QuotaGuard{
		records:  records,
		quotas:   quotas,
		defaults: defaults,
		metrics:  metrics,
		now:      time.Now,
	}
}

// CheckLimits 判断用户追加 estimatedCost 后是否仍在额度内。
// 日窗口先于月窗口判定，等于上限视为允许，只有超出才拒绝。
func (g *QuotaGuard) CheckLimits(ctx context.Context, userID string, estimatedCost float64) types.QuotaCheckResult {
	now := g.now()

	quota := g.loadOrCreateQuota(ctx, userID, now)

	g.maybeResetSnapshot(ctx, quota, now)

	allowAll := types.QuotaCheckResult{
		Allowed:    true,
		Reason:     "quota check unavailable, request allowed",
		DailyLimit: quota.DailyLimit, MonthlyLimit: quota.MonthlyLimit,
	}

	dailySpent, err := g.records.SumUserCost(ctx, userID, utils.DayStart(now), now)
	if err != nil {
		slog.Error("quota check failed to sum daily spend, allowing request",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return allowAll
	}

	monthlySpent, err := g.records.SumUserCost(ctx, userID, utils.MonthStart(now), now)
	if err != nil {
		slog.Error("quota check failed to sum monthly spend, allowing request",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return allowAll
	}

	result := types.QuotaCheckResult{
		Allowed:      true,
		DailyUsage:   dailySpent,
		DailyLimit:   quota.DailyLimit,
		MonthlyUsage: monthlySpent,
		MonthlyLimit: quota.MonthlyLimit,
	}

	if dailySpent+estimatedCost > quota.DailyLimit+costEpsilon {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Daily limit exceeded: spent %.4f, estimated %.4f, limit %.4f",
			dailySpent, estimatedCost, quota.DailyLimit)
		if g.metrics != nil {
			g.metrics.QuotaRejectionInc("daily")
		}
		return result
	}

	if monthlySpent+estimatedCost > quota.MonthlyLimit+costEpsilon {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Monthly limit exceeded: spent %.4f, estimated %.4f, limit %.4f",
			monthlySpent, estimatedCost, quota.MonthlyLimit)
		if g.metrics != nil {
			g.metrics.QuotaRejectionInc("monthly")
		}
		return result
	}

	return result
}

// loadOrCreateQuota 懒创建配额行，任何失败都回退到内存中的默认额度
func (g *QuotaGuard) loadOrCreateQuota(ctx context.Context, userID string, now time.Time) *types.UserQuota {
	fallback := &types.UserQuota{
		UserID:           userID,
		DailyLimit:       g.defaults.DailyOrDefault(),
		MonthlyLimit:     g.defaults.MonthlyOrDefault(),
		LastResetDaily:   now.Unix(),
		LastResetMonthly: now.Unix(),
	}

	quota, err := g.quotas.Get(ctx, userID)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Error("quota row load failed, using defaults",
				slog.String("user_id", userID), slog.String("error", err.Error()))
			return fallback
		}
		if err = g.quotas.Create(ctx, *fallback); err != nil {
			slog.Error("quota row create failed, using defaults",
				slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return fallback
	}
	return quota
}

// maybeResetSnapshot 跨自然日/自然月后把快照字段校正到账本在新窗口内的聚合值。
// 比较的是日历日期而非时间差，重复执行结果一致。
func (g *QuotaGuard) maybeResetSnapshot(ctx context.Context, quota *types.UserQuota, now time.Time) {
	changed := false
	if !utils.SameCalendarDay(time.Unix(quota.LastResetDaily, 0), now) {
		quota.CurrentDaily = g.windowSpent(ctx, quota.UserID, utils.DayStart(now), now)
		quota.LastResetDaily = now.Unix()
		changed = true
	}
	if !utils.SameCalendarMonth(time.Unix(quota.LastResetMonthly, 0), now) {
		quota.CurrentMonthly = g.windowSpent(ctx, quota.UserID, utils.MonthStart(now), now)
		quota.LastResetMonthly = now.Unix()
		changed = true
	}
	if !changed {
		return
	}

	if err := g.quotas.UpdateSnapshot(ctx, quota.UserID, quota.CurrentDaily, quota.CurrentMonthly,
		quota.LastResetDaily, quota.LastResetMonthly); err != nil {
		slog.Error("quota snapshot reset failed",
			slog.String("user_id", quota.UserID), slog.String("error", err.Error()))
	}
}

// windowSpent 重置路径上的账本聚合，失败时按 0 处理，不影响后续判定
func (g *QuotaGuard) windowSpent(ctx context.Context, userID string, st, et time.Time) float64 {
	spent, err := g.records.SumUserCost(ctx, userID, st, et)
	if err != nil {
		slog.Error("quota snapshot recompute failed, snapshot set to zero",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return 0
	}
	return spent
}

// RefreshSnapshot 用账本聚合刷新展示快照，供请求完成后异步调用
func (g *QuotaGuard) RefreshSnapshot(ctx context.Context, userID string) error {
	now := g.now()

	daily, err := g.records.SumUserCost(ctx, userID, utils.DayStart(now), now)
	if err != nil {
		return errors.New("QuotaGuard.RefreshSnapshot.SumDaily", i18n.ERROR_INTERNAL, err)
	}
	monthly, err := g.records.SumUserCost(ctx, userID, utils.MonthStart(now), now)
	if err != nil {
		return errors.New("QuotaGuard.RefreshSnapshot.SumMonthly", i18n.ERROR_INTERNAL, err)
	}

	quota := g.loadOrCreateQuota(ctx, userID, now)
	if err = g.quotas.UpdateSnapshot(ctx, userID, daily, monthly, quota.LastResetDaily, quota.LastResetMonthly); err != nil {
		return errors.New("QuotaGuard.RefreshSnapshot.UpdateSnapshot", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

type QuotaLogic struct {
	ctx   context.Context
	core  *core.Core
	guard *QuotaGuard
}

func NewQuotaLogic(ctx context.Context, core *core.Core) *QuotaLogic {
	return &QuotaLogic{
		ctx:  ctx,
		core: core,
		guard: NewQuotaGuard(core.Store().UsageRecordStore(), core.Store().UserQuotaStore(),
			core.Cfg().Quota, core.Metrics()),
	}
}

func (l *QuotaLogic) Guard() *QuotaGuard {
	return l.guard
}

// GetUsageStatus 返回用户当前日/月窗口的消费情况
func (l *QuotaLogic) GetUsageStatus(userID string) (*types.UsageStatus, error) {
	now := time.Now()

	guard := l.guard
	quota := guard.loadOrCreateQuota(l.ctx, userID, now)

	daily, err := guard.records.SumUserCost(l.ctx, userID, utils.DayStart(now), now)
	if err != nil {
		return nil, errors.New("QuotaLogic.GetUsageStatus.SumDaily", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	monthly, err := guard.records.SumUserCost(l.ctx, userID, utils.MonthStart(now), now)
	if err != nil {
		return nil, errors.New("QuotaLogic.GetUsageStatus.SumMonthly", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}

	return &types.UsageStatus{
		Daily:   buildWindowUsage(daily, quota.DailyLimit),
		Monthly: buildWindowUsage(monthly, quota.MonthlyLimit),
	}, nil
}

func buildWindowUsage(spent, limit float64) types.WindowUsage {
	w := types.WindowUsage{
		Spent:     spent,
		Limit:     limit,
		Remaining: limit - spent,
	}
	if w.Remaining < 0 {
		w.Remaining = 0
	}
	if limit > 0 {
		w.Percentage = spent / limit * 100
	}
	return w
}
