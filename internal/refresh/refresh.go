// Package refresh closes the race between overlapping fetches of the same display data.
package refresh

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Token identifies one issued request.
type Token uint64

// Sequencer hands out increasing tokens. Only the response carrying the latest token may be
// applied to shared display state.
type Sequencer struct {
	last atomic.Uint64
}

// Next issues a token newer than every previous one, which invalidates them.
func (s *Sequencer) Next() Token {
	return Token(s.last.Add(1))
}

// IsLatest reports whether no newer token has been issued since tok.
func (s *Sequencer) IsLatest(tok Token) bool {
	return uint64(tok) == s.last.Load()
}

// Invalidate makes every outstanding token stale, for example on teardown.
func (s *Sequencer) Invalidate() {
	s.last.Add(1)
}

// Coalescer shares one in-flight call among concurrent callers asking for the same key.
type Coalescer[T any] struct {
	group singleflight.Group
}

// Do runs fn once per key at a time; concurrent callers with the same key receive its result.
// shared reports whether the result was delivered to more than one caller.
func (c *Coalescer[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (v T, shared bool, err error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	}
}

// Forget drops key so the next Do starts a fresh call.
func (c *Coalescer[T]) Forget(key string) {
	c.group.Forget(key)
}
