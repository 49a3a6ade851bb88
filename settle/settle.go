// Package settle runs independent fetches concurrently and joins them without
// letting one failure cancel or fail the others. Each fetch owns a Slot that
// falls back to a caller supplied default when the fetch errors or panics.
package settle

import (
	"context"
	"fmt"
	"sync"
)

// Group joins a set of slots. The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Wait blocks until every slot started on g has settled.
func (g *Group) Wait() {
	g.wg.Wait()
}

type Slot[T any] struct {
	value    T
	fallback T
	err      error
	done     chan struct{}
}

// Go starts fn on its own goroutine. The slot is not readable until g.Wait
// returns or Done is closed.
func Go[T any](g *Group, ctx context.Context, fallback T, fn func(ctx context.Context) (T, error)) *Slot[T] {
	s := &Slot[T]{fallback: fallback, done: make(chan struct{})}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer close(s.done)
		defer func() {
			if r := recover(); r != nil {
				s.err = fmt.Errorf("settle: panic: %v", r)
			}
		}()
		s.value, s.err = fn(ctx)
	}()
	return s
}

// Done is closed once the slot has settled.
func (s *Slot[T]) Done() <-chan struct{} {
	return s.done
}

// Value returns the fetched value, or the fallback when the fetch failed.
func (s *Slot[T]) Value() T {
	if s.err != nil {
		return s.fallback
	}
	return s.value
}

func (s *Slot[T]) Err() error {
	return s.err
}

func (s *Slot[T]) OK() bool {
	return s.err == nil
}
