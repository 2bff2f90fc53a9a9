package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"optimahub/internal/gateway"
	"optimahub/internal/query"
	"optimahub/internal/requestctx"
)

// Session is everything one browser holds: its credential, cached reads and resolved principal.
type Session struct {
	ID         string
	Credential *Credential
	Cache      *query.Cache
	API        gateway.API
	Resolver   *Resolver
	InFlight   *InFlight

	mu       sync.Mutex
	lastSeen time.Time
	views    map[string]any
}

func (s *Session) State() State {
	return s.Resolver.State()
}

func (s *Session) resetViews() {
	s.mu.Lock()
	s.views = nil
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type sessionCtxKey struct{}

// NewContext returns ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return sess, ok && sess != nil
}

type ManagerConfig struct {
	TTL            time.Duration
	StaleTime      time.Duration
	CacheRetention time.Duration
	Provider       IdentityProvider
}

// Manager owns every live session and mirrors signed-in ones to a Store.
type Manager struct {
	client *gateway.Client
	store  Store
	cfg    ManagerConfig
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(client *gateway.Client, store Store, cfg ManagerConfig) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CacheRetention <= 0 {
		cfg.CacheRetention = 5 * time.Minute
	}
	if cfg.Provider == nil {
		cfg.Provider = BackendProvider{}
	}
	return &Manager{
		client:   client,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) newSession(id string) *Session {
	cred := NewCredential()
	cache := query.NewCache(m.cfg.StaleTime)
	api := m.client.Bind(cred)
	sess := &Session{
		ID:         id,
		Credential: cred,
		Cache:      cache,
		API:        api,
		Resolver:   NewResolver(api, m.cfg.Provider, cred, cache),
		InFlight:   NewInFlight(),
		lastSeen:   m.now(),
	}
	sess.Resolver.onForget = sess.resetViews
	return sess
}

// Create starts an anonymous session. It is not tracked until Persist sees it signed in,
// so clients that never sign in leave nothing behind.
func (m *Manager) Create(ctx context.Context) *Session {
	sess := m.newSession(uuid.NewString())
	sess.Resolver.Observe(ctx, nil)
	return sess
}

func (m *Manager) track(sess *Session) {
	m.mu.Lock()
	if _, ok := m.sessions[sess.ID]; !ok {
		m.sessions[sess.ID] = sess
	}
	m.mu.Unlock()
}

// Get returns the live session for id, rehydrating it from the store when this process
// has not seen it yet.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	if sess, ok := m.Lookup(id); ok {
		sess.touch(m.now())
		return sess, nil
	}

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.ExpiresAt.After(m.now()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}

	sess := m.newSession(rec.ID)
	identity := Identity{Subject: rec.Email, Email: rec.Email}
	sess.Resolver.Restore(identity, rec.Token)
	if !sess.Credential.Present() {
		_ = m.store.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	sess.Resolver.Observe(requestctx.WithSessionID(ctx, id), &identity)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = sess
	m.mu.Unlock()
	slog.Info("session rehydrated", "sessionId", id, "authenticated", sess.State().Principal != nil)
	return sess, nil
}

func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Persist tracks a signed-in session and writes it to the store. Anonymous sessions are
// removed from the store.
func (m *Manager) Persist(ctx context.Context, sess *Session) error {
	identity := sess.Resolver.Identity()
	token := sess.Credential.Token()
	if identity == nil || token == "" {
		return m.store.Delete(ctx, sess.ID)
	}
	m.track(sess)
	expiresAt := m.now().Add(m.cfg.TTL)
	if exp := sess.Credential.ExpiresAt(); !exp.IsZero() && exp.Before(expiresAt) {
		expiresAt = exp
	}
	return m.store.Save(ctx, Record{
		ID:        sess.ID,
		Email:     identity.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return m.store.Delete(ctx, id)
}

// HandleUnauthorized is the gateway hook: the session named in ctx lost its credential.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	sess, ok := FromContext(ctx)
	if !ok {
		sess, ok = m.Lookup(requestctx.GetSessionID(ctx))
	}
	if !ok {
		return
	}
	sess.Resolver.HandleUnauthorized()
	if err := m.store.Delete(context.WithoutCancel(ctx), sess.ID); err != nil {
		slog.Warn("failed to drop rejected session", "sessionId", sess.ID, "err", err)
	}
}

// SweepResult reports one Sweep pass.
type SweepResult struct {
	Evicted      int   `json:"evicted"`
	StoreExpired int64 `json:"storeExpired"`
	CacheEntries int   `json:"cacheEntries"`
	LiveSessions int   `json:"liveSessions"`
}

// Sweep evicts idle sessions, deletes expired records and prunes old cache entries.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	now := m.now()
	cutoff := now.Add(-m.cfg.TTL)
	var result SweepResult

	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			result.Evicted++
			continue
		}
		result.CacheEntries += sess.Cache.Prune(m.cfg.CacheRetention)
	}
	result.LiveSessions = len(m.sessions)
	m.mu.Unlock()

	removed, err := m.store.DeleteExpired(ctx, now)
	result.StoreExpired = removed
	if err != nil && !errors.Is(err, context.Canceled) {
		return result, err
	}
	return result, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
