package v1

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

type fakeLedger struct {
	daily   float64
	monthly float64
	err     error
	now     time.Time
}

func (f *fakeLedger) SumUserCost(ctx context.Context, userID string, st, et time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if st.Equal(utils.DayStart(f.now)) {
		return f.daily, nil
	}
	return f.monthly, nil
}

type fakeQuotaStore struct {
	row             *types.UserQuota
	created         []types.UserQuota
	snapshotUpdates int
	lastDaily       float64
	lastResetDaily  int64
}

func (f *fakeQuotaStore) Get(ctx context.Context, userID string) (*types.UserQuota, error) {
	if f.row == nil {
		return nil, sql.ErrNoRows
	}
	return f.row, nil
}

func (f *fakeQuotaStore) Create(ctx context.Context, data types.UserQuota) error {
	f.created = append(f.created, data)
	return nil
}

func (f *fakeQuotaStore) UpdateSnapshot(ctx context.Context, userID string, daily, monthly float64, lastResetDaily, lastResetMonthly int64) error {
	f.snapshotUpdates++
	f.lastDaily = daily
	f.lastResetDaily = lastResetDaily
	if f.row != nil {
		f.row.CurrentDaily = daily
		f.row.CurrentMonthly = monthly
		f.row.LastResetDaily = lastResetDaily
		f.row.LastResetMonthly = lastResetMonthly
	}
	return nil
}

func newTestGuard(ledger *fakeLedger, quotas *fakeQuotaStore, now time.Time) *QuotaGuard {
	ledger.now = now
	g := NewQuotaGuard(ledger, quotas, core.QuotaConfig{}, nil)
	g.now = func() time.Time { return now }
	return g
}

func Test_QuotaGuard_RejectsDailyOverrun(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{daily: 0.04, monthly: 0.04}
	quotas := &fakeQuotaStore{row: &types.UserQuota{
		UserID: "u1", DailyLimit: 0.045, MonthlyLimit: 1.0,
		LastResetDaily: now.Unix(), LastResetMonthly: now.Unix(),
	}}

	result := newTestGuard(ledger, quotas, now).CheckLimits(context.Background(), "u1", 0.01)

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "Daily limit exceeded")
	assert.Equal(t, 0.04, result.DailyUsage)
	assert.Equal(t, 0.045, result.DailyLimit)
}

func Test_QuotaGuard_AllowsAtExactLimit(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{daily: 0.035, monthly: 0.035}
	quotas := &fakeQuotaStore{row: &types.UserQuota{
		UserID: "u1", DailyLimit: 0.045, MonthlyLimit: 1.0,
		LastResetDaily: now.Unix(), LastResetMonthly: now.Unix(),
	}}

	// 0.035 + 0.01 == 0.045, 等于上限不算超出
	result := newTestGuard(ledger, quotas, now).CheckLimits(context.Background(), "u1", 0.01)

	assert.True(t, result.Allowed)
}

func Test_QuotaGuard_RejectsMonthlyAfterDailyPasses(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{daily: 0.01, monthly: 0.999}
	quotas := &fakeQuotaStore{row: &types.UserQuota{
		UserID: "u1", DailyLimit: 0.045, MonthlyLimit: 1.0,
		LastResetDaily: now.Unix(), LastResetMonthly: now.Unix(),
	}}

	result := newTestGuard(ledger, quotas, now).CheckLimits(context.Background(), "u1", 0.01)

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "Monthly limit exceeded")
}

func Test_QuotaGuard_FailsOpenOnLedgerError(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{err: fmt.Errorf("connection refused")}
	quotas := &fakeQuotaStore{row: &types.UserQuota{
		UserID: "u1", DailyLimit: 0.045, MonthlyLimit: 1.0,
		LastResetDaily: now.Unix(), LastResetMonthly: now.Unix(),
	}}

	result := newTestGuard(ledger, quotas, now).CheckLimits(context.Background(), "u1", 100)

	assert.True(t, result.Allowed)
	assert.True(t, strings.Contains(result.Reason, "unavailable"))
}

func Test_QuotaGuard_LazyCreatesQuotaRow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{}
	quotas := &fakeQuotaStore{}

	result := newTestGuard(ledger, quotas, now).CheckLimits(context.Background(), "fresh-user", 0.001)

	assert.True(t, result.Allowed)
	if assert.Len(t, quotas.created, 1) {
		assert.Equal(t, "fresh-user", quotas.created[0].UserID)
		assert.Equal(t, types.DEFAULT_DAILY_LIMIT, quotas.created[0].DailyLimit)
		assert.Equal(t, types.DEFAULT_MONTHLY_LIMIT, quotas.created[0].MonthlyLimit)
	}
}

func Test_QuotaGuard_ResetsSnapshotOnNewCalendarDay(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 10, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	ledger := &fakeLedger{daily: 0.005, monthly: 0.02}
	quotas := &fakeQuotaStore{row: &types.UserQuota{
		UserID: "u1", DailyLimit: 0.045, MonthlyLimit: 1.0,
		CurrentDaily:   0.04,
		LastResetDaily: yesterday.Unix(), LastResetMonthly: now.Unix(),
	}}

	guard := newTestGuard(ledger, quotas, now)
	result := guard.CheckLimits(context.Background(), "u1", 0.001)

	assert.True(t, result.Allowed)
	assert.Equal(t, 1, quotas.snapshotUpdates)
	// 快照不是简单清零，而是按新窗口的账本聚合值校正
	assert.Equal(t, 0.005, quotas.lastDaily)
	assert.True(t, utils.SameCalendarDay(time.Unix(quotas.lastResetDaily, 0), now))

	// 同一天内重复判定不会再次触发重置
	guard.CheckLimits(context.Background(), "u1", 0.001)
	assert.Equal(t, 1, quotas.snapshotUpdates)
}
