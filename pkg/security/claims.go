package security

// TokenClaims describes the caller identity resolved from an access token.
type TokenClaims struct {
	User       string `json:"user"`
	Token      string `json:"-"`
	ExpireTime int64  `json:"expire_time"`
}

func NewTokenClaims(userID, token string, expireTime int64) TokenClaims {
	return TokenClaims{
		User:       userID,
		Token:      token,
		ExpireTime: expireTime,
	}
}

func (t TokenClaims) GetUser() string {
	return t.User
}
