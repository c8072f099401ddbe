package http

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// HeaderUserID carries the principal set by the authenticating gateway.
const HeaderUserID = "X-User-ID"

type principalKey struct{}

func requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := core.Principal{UserID: strings.TrimSpace(r.Header.Get(HeaderUserID))}
		if !p.Valid() {
			writeStatus(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func principalFrom(ctx context.Context) core.Principal {
	p, _ := ctx.Value(principalKey{}).(core.Principal)
	return p
}
