package live

import (
	"context"
	"sync"
)

// Query loads the current result set of a view.
type Query[T any] func(ctx context.Context) (T, error)

// Deliver receives each refreshed result. Calls for one view never overlap.
type Deliver[T any] func(result T, err error)

// View is a continuously-updating query result.
//
// The hub subscription is registered before the first query runs, so a write
// committed between Watch and the first delivery is always reflected. Bursts of
// changes are coalesced: the view re-runs its query once and delivers the
// newest result.
type View[T any] struct {
	id     string
	hub    *Hub
	query  Query[T]
	out    Deliver[T]
	dirty  chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Watch starts a view over query, refreshed on changes to tables that pass filter.
func Watch[T any](ctx context.Context, hub *Hub, query Query[T], deliver Deliver[T], filter Filter, tables ...Table) *View[T] {
	ctx, cancel := context.WithCancel(ctx)
	v := &View[T]{
		hub:    hub,
		query:  query,
		out:    deliver,
		dirty:  make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if hub != nil {
		v.id = hub.SubscribeWithFilter(func(Change) { v.markDirty() }, filter, tables...)
	}
	v.markDirty()
	go v.run(ctx)
	return v
}

// Close stops deliveries. Writes already in flight are unaffected.
// Close does not wait for the view goroutine; use Done for that.
func (v *View[T]) Close() {
	v.once.Do(func() {
		if v.hub != nil {
			v.hub.Unsubscribe(v.id)
		}
		v.cancel()
	})
}

// Done is closed once the view goroutine has exited.
func (v *View[T]) Done() <-chan struct{} {
	return v.done
}

func (v *View[T]) markDirty() {
	select {
	case v.dirty <- struct{}{}:
	default:
	}
}

func (v *View[T]) run(ctx context.Context) {
	defer close(v.done)
	defer v.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.dirty:
		}
		result, err := v.query(ctx)
		if ctx.Err() != nil {
			return
		}
		v.out(result, err)
	}
}
