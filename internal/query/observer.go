package query

import (
	"context"
	"sync"
)

type Snapshot[T any] struct {
	Key         Key
	Data        T
	HasData     bool
	Loading     bool
	Placeholder bool
	Err         error
}

// Observer tracks one view's current key. Only the most recently issued Load may
// publish its result; earlier loads that finish late are discarded.
type Observer[T any] struct {
	cache        *Cache
	keepPrevious bool

	mu      sync.Mutex
	seq     uint64
	current Key
	loading bool
	data    T
	dataKey Key
	hasData bool
	err     error
}

// NewObserver returns an observer over cache. With keepPrevious, the last data stays
// visible (as a placeholder) while the next key loads.
func NewObserver[T any](cache *Cache, keepPrevious bool) *Observer[T] {
	return &Observer[T]{cache: cache, keepPrevious: keepPrevious}
}

func (o *Observer[T]) Load(ctx context.Context, key Key, fn func(context.Context) (T, error)) (Snapshot[T], error) {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.current = append(Key(nil), key...)
	o.loading = true
	o.mu.Unlock()

	data, err := Get(ctx, o.cache, key, fn)

	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		return o.snapshotLocked(), ErrSuperseded
	}
	o.loading = false
	if err != nil {
		o.err = err
		return o.snapshotLocked(), err
	}
	o.data = data
	o.dataKey = o.current
	o.hasData = true
	o.err = nil
	return o.snapshotLocked(), nil
}

func (o *Observer[T]) Snapshot() Snapshot[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Observer[T]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{Key: o.current, Loading: o.loading, Err: o.err}
	if !o.hasData {
		return snap
	}
	placeholder := !o.dataKey.Equal(o.current)
	if placeholder && !o.keepPrevious {
		return snap
	}
	snap.Data = o.data
	snap.HasData = true
	snap.Placeholder = placeholder
	return snap
}
