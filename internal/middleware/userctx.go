package middleware

import (
	"context"

	"github.com/baharkarakas/coin-wallet/internal/auth"
)

type sessionKey struct{}

func WithSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}
