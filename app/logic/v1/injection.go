package v1

import (
	"context"

	"github.com/sagechat-ai/sagechat/pkg/security"
)

const (
	TOKEN_CONTEXT_KEY = "__sage.access_token"
	LANGUAGE_KEY      = "__sage.accept_language"
)

// InjectTokenClaim get user token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}
