package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/shopspring/decimal"

	"optimahub/internal/domain/auth"
	"optimahub/internal/gateway"
	"optimahub/internal/query"
)

const DefaultAvatar = "https://example.com/default-avatar.png"

// State is what the router and views read: the resolved principal, or nil, and whether
// resolution is still running.
type State struct {
	Principal *auth.Principal `json:"principal"`
	Loading   bool            `json:"loading"`
}

// Registration is the payload of an email/password sign-up.
type Registration struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Password      string          `json:"password"`
	Role          auth.Role       `json:"role"`
	Designation   string          `json:"designation"`
	BankAccountNo string          `json:"bankAccountNo"`
	Salary        decimal.Decimal `json:"salary"`
	Photo         string          `json:"photo"`
}

// RegistrationRoles are the roles a user may pick for themselves.
var RegistrationRoles = []auth.Role{auth.RoleEmployee, auth.RoleHR}

// SocialProfile is what a federated identity provider returns after a popup sign-in.
type SocialProfile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type profileResponse struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          string          `json:"role"`
	Designation   string          `json:"designation"`
	Salary        decimal.Decimal `json:"salary"`
	BankAccountNo string          `json:"bankAccountNo"`
	Photo         string          `json:"photo"`
}

// Resolver fuses identity-provider state with the backend profile into one State.
type Resolver struct {
	api      gateway.API
	provider IdentityProvider
	cred     *Credential
	cache    *query.Cache
	onForget func()

	mu        sync.RWMutex
	seq       uint64
	identity  *Identity
	principal *auth.Principal
	loading   bool
}

func NewResolver(api gateway.API, provider IdentityProvider, cred *Credential, cache *query.Cache) *Resolver {
	if provider == nil {
		provider = BackendProvider{}
	}
	return &Resolver{
		api:      api,
		provider: provider,
		cred:     cred,
		cache:    cache,
		loading:  true,
	}
}

func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{Principal: r.principal, Loading: r.loading}
}

func (r *Resolver) Identity() *Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.identity == nil {
		return nil
	}
	id := *r.identity
	return &id
}

// Observe reacts to an identity-provider change. A nil identity signs the session out
// locally; otherwise the backend profile is fetched and becomes the principal. Only the
// most recent call may publish its outcome.
func (r *Resolver) Observe(ctx context.Context, identity *Identity) State {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	if identity == nil {
		r.identity = nil
		r.principal = nil
		r.loading = false
		r.mu.Unlock()
		r.cred.Clear()
		return r.State()
	}
	id := *identity
	r.identity = &id
	r.loading = true
	r.mu.Unlock()

	principal, err := r.resolve(ctx, id)
	if err != nil {
		slog.Warn("session profile resolution failed", "email", id.Email, "err", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return State{Principal: r.principal, Loading: r.loading}
	}
	r.principal = principal
	r.loading = false
	return State{Principal: r.principal, Loading: false}
}

func (r *Resolver) resolve(ctx context.Context, id Identity) (*auth.Principal, error) {
	if !r.cred.Present() {
		var out tokenResponse
		if err := r.api.Do(ctx, gateway.Post("/jwt", map[string]string{"email": id.Email}).WithoutCredential(), &out); err != nil {
			return nil, fmt.Errorf("exchange identity: %w", err)
		}
		if out.Token == "" {
			return nil, ErrMissingToken
		}
		r.cred.Set(out.Token)
	}

	var profile profileResponse
	if err := r.api.Do(ctx, gateway.Get("/auth/user/"+url.PathEscape(id.Email), nil), &profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	if profile.Role == "" && profile.Email == "" {
		return nil, ErrProfileUnavailable
	}

	principal := &auth.Principal{
		Subject:       id.Subject,
		Name:          firstNonEmpty(profile.Name, id.DisplayName),
		Email:         firstNonEmpty(profile.Email, id.Email),
		Role:          auth.Role(profile.Role),
		Designation:   profile.Designation,
		Salary:        profile.Salary,
		BankAccountNo: profile.BankAccountNo,
		Photo:         firstNonEmpty(profile.Photo, id.PhotoURL),
	}
	if role, ok := auth.ParseRole(profile.Role); ok {
		principal.Role = role
	}
	return principal, nil
}

// SignIn verifies the password with the identity provider and the backend, stores the
// issued credential and resolves the profile.
func (r *Resolver) SignIn(ctx context.Context, email, password string) (State, error) {
	identity, err := r.provider.SignIn(ctx, email, password)
	if err != nil {
		return r.State(), fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	var out tokenResponse
	body := map[string]string{"email": identity.Email, "password": password}
	if err := r.api.Do(ctx, gateway.Post("/auth/login", body).WithoutCredential(), &out); err != nil {
		if gateway.StatusOf(err) >= 400 && gateway.StatusOf(err) < 500 {
			return r.State(), fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return r.State(), err
	}
	if out.Token == "" {
		return r.State(), ErrMissingToken
	}
	r.start(identity, out.Token)
	return r.Observe(ctx, &identity), nil
}

func (r *Resolver) Register(ctx context.Context, reg Registration) (State, error) {
	identity, err := r.provider.SignUp(ctx, reg.Email, reg.Password, reg.Name, reg.Photo)
	if err != nil {
		return r.State(), fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	body := map[string]any{
		"name":          reg.Name,
		"email":         identity.Email,
		"password":      reg.Password,
		"role":          reg.Role,
		"designation":   reg.Designation,
		"bankAccountNo": reg.BankAccountNo,
		"salary":        json.Number(reg.Salary.String()),
		"photo":         reg.Photo,
	}
	var out tokenResponse
	if err := r.api.Do(ctx, gateway.Post("/register", body).WithoutCredential(), &out); err != nil {
		return r.State(), fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if out.Token == "" {
		return r.State(), ErrMissingToken
	}
	r.start(identity, out.Token)
	return r.Observe(ctx, &identity), nil
}

// SocialLogin upserts a federated user as an employee with empty payroll details.
func (r *Resolver) SocialLogin(ctx context.Context, profile SocialProfile) (State, error) {
	photo := profile.PhotoURL
	if photo == "" {
		photo = DefaultAvatar
	}
	identity := Identity{
		Subject:     normalizeEmail(profile.Email),
		Email:       normalizeEmail(profile.Email),
		DisplayName: profile.Name,
		PhotoURL:    photo,
	}
	body := map[string]any{
		"name":          profile.Name,
		"email":         identity.Email,
		"role":          auth.RoleEmployee,
		"designation":   "",
		"bankAccountNo": "",
		"salary":        0,
		"photo":         photo,
	}
	var out tokenResponse
	if err := r.api.Do(ctx, gateway.Post("/auth/social-login", body).WithoutCredential(), &out); err != nil {
		return r.State(), fmt.Errorf("social login: %w", err)
	}
	if out.Token == "" {
		return r.State(), ErrMissingToken
	}
	r.start(identity, out.Token)
	return r.Observe(ctx, &identity), nil
}

// SignOut ends the provider session and drops everything the session held.
func (r *Resolver) SignOut(ctx context.Context) error {
	identity := r.Identity()
	var providerErr error
	if identity != nil {
		providerErr = r.provider.SignOut(ctx, *identity)
	}
	r.Observe(ctx, nil)
	r.forget()
	if providerErr != nil {
		return fmt.Errorf("provider sign out: %w", providerErr)
	}
	return nil
}

// Refresh re-resolves the current identity, e.g. after a profile change.
func (r *Resolver) Refresh(ctx context.Context) State {
	return r.Observe(ctx, r.Identity())
}

// HandleUnauthorized runs after the backend rejected the credential. The session keeps
// no principal and no cached data until the user signs in again.
func (r *Resolver) HandleUnauthorized() {
	r.mu.Lock()
	r.seq++
	r.identity = nil
	r.principal = nil
	r.loading = false
	r.mu.Unlock()
	r.cred.Clear()
	r.forget()
}

// Restore re-attaches a persisted credential and identity without resolving the profile.
func (r *Resolver) Restore(identity Identity, token string) {
	r.start(identity, token)
}

// start binds a new credential and identity. Signing in as someone else on the same
// session drops what the previous principal had cached.
func (r *Resolver) start(identity Identity, token string) {
	r.mu.Lock()
	switched := r.identity != nil && normalizeEmail(r.identity.Email) != normalizeEmail(identity.Email)
	if switched {
		r.seq++
		r.principal = nil
	}
	id := identity
	r.identity = &id
	r.mu.Unlock()
	if switched {
		r.forget()
	}
	r.cred.Set(token)
}

// forget drops cached reads and any per-session views built from them.
func (r *Resolver) forget() {
	r.cache.Clear()
	if r.onForget != nil {
		r.onForget()
	}
}

// IsAuthError reports whether err means the user must sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, ErrInvalidCredentials)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
