package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential holds one session's backend-issued bearer token.
type Credential struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewCredential() *Credential {
	return &Credential{now: time.Now}
}

// Set stores token. The expiry is read from the token's exp claim without verifying the
// signature: the backend is the only party that validates it.
func (c *Credential) Set(token string) {
	expiresAt := tokenExpiry(token)
	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
}

// Token returns the bearer token, or "" when none is stored or it has expired.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	if !c.expiresAt.IsZero() && !c.now().Before(c.expiresAt) {
		return ""
	}
	return c.token
}

func (c *Credential) Clear() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Credential) Present() bool {
	return c.Token() != ""
}

func (c *Credential) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
