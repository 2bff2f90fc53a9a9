package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"optimahub/internal/domain/auth"
	"optimahub/internal/requestctx"
	"optimahub/internal/session"
)

const SessionCookieName = "optimahub_session"

type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Session attaches the browser's session to the request, starting an anonymous one when the
// cookie is missing or names a session the server no longer knows. The cookie is issued
// only once the session signs in.
func Session(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				found, err := mgr.Get(r.Context(), cookie.Value)
				switch {
				case err == nil:
					sess = found
				case !errors.Is(err, session.ErrSessionNotFound):
					slog.Warn("session lookup failed", "err", err, "requestId", GetRequestID(r.Context()))
				}
			}
			if sess == nil {
				sess = mgr.Create(r.Context())
			}

			ctx := requestctx.WithSessionID(r.Context(), sess.ID)
			ctx = session.NewContext(ctx, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, id string, opts CookieOptions) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if opts.MaxAge > 0 {
		cookie.MaxAge = int(opts.MaxAge.Seconds())
	}
	http.SetCookie(w, cookie)
}

func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func GetSession(ctx context.Context) (*session.Session, bool) {
	return session.FromContext(ctx)
}

// GetPrincipal returns the signed-in principal of the request's session.
func GetPrincipal(ctx context.Context) (*auth.Principal, bool) {
	sess, ok := GetSession(ctx)
	if !ok {
		return nil, false
	}
	principal := sess.State().Principal
	return principal, principal != nil
}
