package types

// AccessToken authenticates API callers. Issuance and rotation belong to
// the account service, this subsystem only validates.
type AccessToken struct {
	ID        int64  `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	Token     string `json:"token" db:"token"`
	ExpiresAt int64  `json:"expires_at" db:"expires_at"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
