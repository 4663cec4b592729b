package middleware

import (
	"context"
	"net/http"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	principalKey contextKey = "principal"
)

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(r *http.Request) string {
	v, _ := r.Context().Value(requestIDKey).(string)
	return v
}

func SetPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the principal RequireSession attached to the request.
func GetPrincipal(r *http.Request) (model.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(model.Principal)
	return p, ok && p.ID != ""
}
