package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/budgetly/budgetly/internal/session"
)

// SessionValidator resolves request credentials to a principal.
type SessionValidator interface {
	Validate(ctx context.Context, creds session.Credentials) (session.Result, error)
}

// Session returns a middleware that authenticates requests from the session
// cookies. A pair issued by a refresh is written back as cookies before the
// request continues, even when the request is then rejected, because the
// credential store has already rotated the refresh token.
func Session(v SessionValidator, cookies session.CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := v.Validate(r.Context(), session.ReadCredentials(r))
			if res.Refreshed != nil {
				cookies.SetTokens(w, *res.Refreshed)
			}
			if err != nil {
				logger.DebugContext(r.Context(), "request unauthenticated",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", r.URL.Path),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Not authenticated")
				return
			}

			ctx := session.ContextWithPrincipal(r.Context(), res.Principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
