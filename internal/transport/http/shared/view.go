package shared

import "optimahub/internal/query"

// ViewResponse is an observer snapshot as the browser sees it.
type ViewResponse[T any] struct {
	Key         []string `json:"key"`
	Data        T        `json:"data"`
	Placeholder bool     `json:"placeholder"`
	Loading     bool     `json:"loading"`
}

func NewViewResponse[T any](snap query.Snapshot[T]) ViewResponse[T] {
	return ViewResponse[T]{
		Key:         snap.Key,
		Data:        snap.Data,
		Placeholder: snap.Placeholder,
		Loading:     snap.Loading,
	}
}
