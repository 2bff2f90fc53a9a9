package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type fakeBackend struct {
	mu       sync.Mutex
	roles    map[string]string
	calls    []string
	bodies   map[string]map[string]any
	auth     []string
	rejected map[string]bool
	server   *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		roles:    map[string]string{"hr@example.com": "hr", "admin@example.com": "admin"},
		bodies:   make(map[string]map[string]any),
		rejected: make(map[string]bool),
	}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.calls = append(fb.calls, r.Method+" "+r.URL.Path)
	fb.auth = append(fb.auth, r.Header.Get("Authorization"))
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	fb.bodies[r.URL.Path] = body
	fb.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/auth/login":
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + body["email"].(string)})
	case r.URL.Path == "/register", r.URL.Path == "/auth/social-login", r.URL.Path == "/jwt":
		email, _ := body["email"].(string)
		if role, ok := body["role"].(string); ok {
			fb.mu.Lock()
			fb.roles[email] = role
			fb.mu.Unlock()
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + email})
	case strings.HasPrefix(r.URL.Path, "/auth/user/"):
		email := strings.TrimPrefix(r.URL.Path, "/auth/user/")
		fb.mu.Lock()
		role, known := fb.roles[email]
		rejected := fb.rejected[email]
		fb.mu.Unlock()
		if rejected {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-"+email {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !known {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":          "User",
			"email":         email,
			"role":          role,
			"designation":   "Engineer",
			"salary":        5000,
			"bankAccountNo": "ACC-1",
			"photo":         "https://img.example/u.png",
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fb *fakeBackend) callCount(prefix string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (fb *fakeBackend) body(path string) map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[path]
}
