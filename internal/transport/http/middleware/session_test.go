package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"optimahub/internal/domain/auth"
	"optimahub/internal/gateway"
	"optimahub/internal/session"
)

func TestSessionMiddlewareStartsAnonymousSession(t *testing.T) {
	mgr := session.NewManager(gateway.New("http://127.0.0.1:1"), nil, session.ManagerConfig{})
	handler := Session(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSession(r.Context()); !ok {
			t.Fatal("expected session in context")
		}
		if _, ok := GetPrincipal(r.Context()); ok {
			t.Fatal("new session must be anonymous")
		}
	}))

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config/public", nil))
		if len(rec.Result().Cookies()) != 0 {
			t.Fatal("anonymous session must not be issued a cookie")
		}
	}
	if mgr.Len() != 0 {
		t.Fatalf("cookieless requests must not accumulate sessions, got %d", mgr.Len())
	}
}

func TestSessionMiddlewareSelectsSignedInSession(t *testing.T) {
	mgr := session.NewManager(gateway.New("http://127.0.0.1:1"), nil, session.ManagerConfig{})
	sess := mgr.Create(context.Background())
	sess.Resolver.Restore(session.Identity{Subject: "hr@example.com", Email: "hr@example.com"}, "opaque-token")
	if err := mgr.Persist(context.Background(), sess); err != nil {
		t.Fatalf("persist: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.ID})
	var seen string
	Session(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		found, _ := GetSession(r.Context())
		seen = found.ID
	})).ServeHTTP(httptest.NewRecorder(), req)
	if seen != sess.ID {
		t.Fatalf("expected cookie to select %q, got %q", sess.ID, seen)
	}
}

func TestSessionMiddlewareIgnoresUnknownCookie(t *testing.T) {
	mgr := session.NewManager(gateway.New("http://127.0.0.1:1"), nil, session.ManagerConfig{})
	var seen string
	handler := Session(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := GetSession(r.Context())
		seen = sess.ID
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "attacker-chosen"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "" || seen == "attacker-chosen" {
		t.Fatalf("expected a fresh server-issued id, got %q", seen)
	}
}

func TestSetSessionCookieFlags(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "s1", CookieOptions{Secure: true})
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "s1" || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("expected HttpOnly Secure session cookie, got %+v", cookies)
	}
}

func TestRequireCapability(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	gate := RequireCapability(auth.CapEmployeesVerify)(ok)

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	cases := []struct {
		role auth.Role
		want int
	}{
		{auth.RoleHR, http.StatusNoContent},
		{auth.RoleEmployee, http.StatusForbidden},
		{"intern", http.StatusForbidden},
	}
	for _, tc := range cases {
		ctx := signedInContext(t, auth.Principal{Name: "X", Email: string(tc.role) + "@example.com", Role: tc.role})
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/", nil).WithContext(ctx))
		if rec.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}
}

func TestRequireAuthenticated(t *testing.T) {
	handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
