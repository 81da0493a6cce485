package core

import "context"

type contextKey string

const ctxKeyRequestMeta contextKey = "import_request_meta"

// RequestMeta identifies who started an import. Commit backends record it
// alongside each batch.
type RequestMeta struct {
	Actor     string // API key name, or "cli"
	IPAddress string
	UserAgent string
}

// ContextWithRequestMeta attaches request provenance to ctx.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, ctxKeyRequestMeta, meta)
}

// RequestMetaFromContext returns the provenance attached to ctx, or the zero
// value when there is none.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(ctxKeyRequestMeta).(RequestMeta); ok {
		return v
	}
	return RequestMeta{}
}
