package session

import "optimahub/internal/query"

// View returns the session's named observer, creating it on first use. Observers are
// per session so that a late answer for one browser never lands in another's view.
func View[T any](s *Session, name string, keepPrevious bool) *query.Observer[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.views == nil {
		s.views = make(map[string]any)
	}
	if existing, ok := s.views[name].(*query.Observer[T]); ok {
		return existing
	}
	obs := query.NewObserver[T](s.Cache, keepPrevious)
	s.views[name] = obs
	return obs
}
