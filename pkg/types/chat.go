package types

import (
	"github.com/pgvector/pgvector-go"
)

const (
	USER_ROLE_SYSTEM    = "system"
	USER_ROLE_USER      = "user"
	USER_ROLE_ASSISTANT = "assistant"
)

// MessageContext is one entry of the prompt sent to the completion model.
type MessageContext struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RetrievedMatch is one similarity hit from the conversation vector index.
// Matches are ephemeral, only the source embeddings are persisted.
type RetrievedMatch struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
	Role      string  `json:"role"`
	Timestamp int64   `json:"timestamp"`
	MessageID string  `json:"message_id"`
}

// ConversationVector is a stored message embedding used for retrieval.
type ConversationVector struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	ConversationID string          `json:"conversation_id" db:"conversation_id"`
	MessageID      string          `json:"message_id" db:"message_id"`
	Role           string          `json:"role" db:"role"`
	Content        string          `json:"content" db:"content"`
	Embedding      pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt      int64           `json:"created_at" db:"created_at"`
}

// VectorQueryResult is the raw row shape of a cosine similarity query.
type VectorQueryResult struct {
	ID        string  `json:"id" db:"id"`
	MessageID string  `json:"message_id" db:"message_id"`
	Role      string  `json:"role" db:"role"`
	Content   string  `json:"content" db:"content"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
	Cos       float64 `json:"cos" db:"cos"`
}
