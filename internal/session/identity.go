package session

import (
	"context"
	"strings"
)

// Identity is what the identity provider knows about a signed-in user.
type Identity struct {
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// IdentityProvider is the third-party sign-in service wrapped by the Resolver.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password, displayName, photoURL string) (Identity, error)
	SignOut(ctx context.Context, identity Identity) error
}

// BackendProvider lets the remote API's own login endpoint verify passwords; the identity
// is the asserted email address.
type BackendProvider struct{}

func (BackendProvider) SignIn(_ context.Context, email, _ string) (Identity, error) {
	email = normalizeEmail(email)
	return Identity{Subject: email, Email: email}, nil
}

func (BackendProvider) SignUp(_ context.Context, email, _, displayName, photoURL string) (Identity, error) {
	email = normalizeEmail(email)
	return Identity{Subject: email, Email: email, DisplayName: displayName, PhotoURL: photoURL}, nil
}

func (BackendProvider) SignOut(context.Context, Identity) error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
