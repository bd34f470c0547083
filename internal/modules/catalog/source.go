package catalog

import "context"

// Unsubscribe releases a live subscription. Calling it more than once is safe.
type Unsubscribe func()

// Source is one independently updating upstream collection. Subscribe pushes a
// full snapshot, in the collection's stable name order, on every change; Fetch
// is the one-shot read used by the periodic fallback.
type Source interface {
	Name() string
	Subscribe(ctx context.Context, onSnapshot func([]Record), onError func(error)) (Unsubscribe, error)
	Fetch(ctx context.Context) ([]Record, error)
}
