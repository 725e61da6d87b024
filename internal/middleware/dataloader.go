package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/paneltrack/internal/panelloader"
	"github.com/rpattn/paneltrack/internal/repository"
)

type ctxKey string

const statusLoaderKey ctxKey = "statusLoader"

// StatusLoaderMiddleware attaches a per-request panel status loader to the
// request context.
func StatusLoaderMiddleware(repo repository.PanelRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := panelloader.NewStatusLoader(repo)
			ctx := context.WithValue(r.Context(), statusLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StatusLoaderFromContext retrieves the loader, or nil when none is attached.
func StatusLoaderFromContext(ctx context.Context) *panelloader.StatusLoader {
	if l, ok := ctx.Value(statusLoaderKey).(*panelloader.StatusLoader); ok {
		return l
	}
	return nil
}
