package usecase

import (
	"context"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

type sessionKey struct{}

// NewSessionContext 将已认证的会话放入 context
func NewSessionContext(ctx context.Context, s tool.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext 取出会话
func SessionFromContext(ctx context.Context) (tool.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(tool.Session)
	return s, ok
}
