// Package optimistic implements apply-then-confirm state transitions.
package optimistic

import "context"

// Apply publishes next through set before op runs. When op fails the
// previous value is restored; when it succeeds the value op returns replaces
// the optimistic one, since the server result is authoritative.
func Apply[T any](ctx context.Context, prev, next T, set func(T), op func(ctx context.Context) (T, error)) (T, error) {
	set(next)

	confirmed, err := op(ctx)
	if err != nil {
		set(prev)
		return prev, err
	}

	set(confirmed)
	return confirmed, nil
}
