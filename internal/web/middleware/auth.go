package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

type actorKey struct{}

// DefaultActor is recorded for requests made with a bare API key, or with
// authentication disabled.
const DefaultActor = "api"

type apiKey struct {
	name string
	key  []byte
}

// parseAPIKeys splits "name:key" entries. A bare "key" gets DefaultActor.
func parseAPIKeys(entries []string) []apiKey {
	keys := make([]apiKey, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, key, found := strings.Cut(entry, ":")
		if !found {
			name, key = DefaultActor, entry
		}
		keys = append(keys, apiKey{name: strings.TrimSpace(name), key: []byte(strings.TrimSpace(key))})
	}
	return keys
}

// APIKeyAuth validates the X-API-Key header against the configured keys and
// stores the matching key's name as the request actor.
// If required is false, all requests pass through as DefaultActor.
// If required is true but no keys are configured, all requests are rejected.
func APIKeyAuth(required bool, entries []string) func(http.Handler) http.Handler {
	keys := parseAPIKeys(entries)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), DefaultActor)))
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}

			actor, ok := matchAPIKey(provided, keys)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// matchAPIKey compares against every key in constant time, so the time
// taken does not depend on which key matched.
func matchAPIKey(provided string, keys []apiKey) (string, bool) {
	var actor string
	matched := 0
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(provided), k.key) == 1 {
			actor = k.name
			matched = 1
		}
	}
	return actor, matched == 1
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","message":"` + msg + `","code":"` + code + `"}`))
}

// WithActor stores the authenticated caller's name in ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller name set by APIKeyAuth, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
