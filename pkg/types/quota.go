package types

// Default monetary ceilings applied when a quota row is created lazily.
// Daily fits roughly 30 requests at current model prices.
const (
	DEFAULT_DAILY_LIMIT   = 0.045
	DEFAULT_MONTHLY_LIMIT = 1.0
)

// UserQuota caps a user's spend per calendar day and month.
// CurrentDaily and CurrentMonthly are advisory snapshots refreshed from the
// usage ledger, they are never read for enforcement decisions.
type UserQuota struct {
	UserID           string  `json:"user_id" db:"user_id"`
	DailyLimit       float64 `json:"daily_limit" db:"daily_limit"`
	MonthlyLimit     float64 `json:"monthly_limit" db:"monthly_limit"`
	CurrentDaily     float64 `json:"current_daily" db:"current_daily"`
	CurrentMonthly   float64 `json:"current_monthly" db:"current_monthly"`
	LastResetDaily   int64   `json:"last_reset_daily" db:"last_reset_daily"`
	LastResetMonthly int64   `json:"last_reset_monthly" db:"last_reset_monthly"`
	CreatedAt        int64   `json:"created_at" db:"created_at"`
	UpdatedAt        int64   `json:"updated_at" db:"updated_at"`
}

// QuotaCheckResult is the guard verdict for one prospective request.
type QuotaCheckResult struct {
	Allowed      bool    `json:"allowed"`
	Reason       string  `json:"reason,omitempty"`
	DailyUsage   float64 `json:"daily_usage"`
	DailyLimit   float64 `json:"daily_limit"`
	MonthlyUsage float64 `json:"monthly_usage"`
	MonthlyLimit float64 `json:"monthly_limit"`
}

// WindowUsage is one calendar window of the usage status report.
type WindowUsage struct {
	Spent      float64 `json:"spent"`
	Limit      float64 `json:"limit"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

// UsageStatus is the payload of GET /usage.
type UsageStatus struct {
	Daily   WindowUsage `json:"daily"`
	Monthly WindowUsage `json:"monthly"`
}
