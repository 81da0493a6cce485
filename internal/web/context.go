package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/csvimport/internal/core"
	appmw "github.com/JonMunkholm/csvimport/internal/web/middleware"
)

// withRequestMeta attaches the caller, address and user agent to the
// request context so commit backends can record batch provenance.
func withRequestMeta(r *http.Request) context.Context {
	ip := r.RemoteAddr // already rewritten by TrustedRealIP
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.ContextWithRequestMeta(r.Context(), core.RequestMeta{
		Actor:     appmw.ActorFromContext(r.Context()),
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	})
}
