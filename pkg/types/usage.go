package types

// Service names a billable upstream collaborator.
const (
	SERVICE_MODEL_PROVIDER = "model-provider"
	SERVICE_VECTOR_STORE   = "vector-store"
)

// Priced operations. Token based operations carry token counts,
// vector operations are flat rate.
const (
	OPERATION_COMPLETION    = "completion"
	OPERATION_EMBEDDING     = "embedding"
	OPERATION_VECTOR_QUERY  = "vector-query"
	OPERATION_VECTOR_UPSERT = "vector-upsert"
)

// UsageRecord is one priced operation. Records are append only, the
// ledger they form is the single source of truth for user spend.
type UsageRecord struct {
	ID             string  `json:"id" db:"id"`
	Service        string  `json:"service" db:"service"`
	Operation      string  `json:"operation" db:"operation"`
	Model          string  `json:"model" db:"model"`
	UserID         string  `json:"user_id" db:"user_id"` // empty for anonymous requests
	ConversationID string  `json:"conversation_id" db:"conversation_id"`
	InputTokens    int     `json:"input_tokens" db:"input_tokens"`
	OutputTokens   int     `json:"output_tokens" db:"output_tokens"`
	TotalTokens    int     `json:"total_tokens" db:"total_tokens"`
	EstimatedCost  float64 `json:"estimated_cost" db:"estimated_cost"` // USD, never negative
	CreatedAt      int64   `json:"created_at" db:"created_at"`
}

// OperationCostSummary is one row of the grouped spend aggregate.
type OperationCostSummary struct {
	Operation string  `json:"operation" db:"operation"`
	Cost      float64 `json:"cost" db:"cost"`
	Records   int64   `json:"records" db:"records"`
}
