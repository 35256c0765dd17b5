package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishMatchesTables(t *testing.T) {
	hub := NewHub(nil)
	var courses, all int32
	hub.Subscribe(func(Change) { atomic.AddInt32(&courses, 1) }, TableCourses)
	hub.Subscribe(func(Change) { atomic.AddInt32(&all, 1) })

	hub.Publish(Change{Table: TableCourses, Op: OpPut, CourseID: 1})
	hub.Publish(Change{Table: TableStudents, Op: OpDelete, StudentID: 2})

	assert.Equal(t, int32(1), atomic.LoadInt32(&courses))
	assert.Equal(t, int32(2), atomic.LoadInt32(&all))
}

func TestHubFilterAndUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	var got []Change
	id := hub.SubscribeWithFilter(func(c Change) { got = append(got, c) }, func(c Change) bool {
		return c.StudentID == 0 || c.StudentID == 7
	}, TableSubscribes)

	hub.Publish(
		Change{Table: TableSubscribes, StudentID: 7, CourseID: 1},
		Change{Table: TableSubscribes, StudentID: 8, CourseID: 1},
		Change{Table: TableSubscribes, CourseID: 2},
	)
	require.Len(t, got, 2)
	assert.False(t, got[0].At.IsZero())
	assert.Equal(t, int64(2), got[1].CourseID)

	assert.True(t, hub.Unsubscribe(id))
	assert.False(t, hub.Unsubscribe(id))
	assert.Equal(t, 0, hub.Subscribers())
}

func TestHubRecoversHandlerPanic(t *testing.T) {
	hub := NewHub(nil)
	var reached bool
	hub.Subscribe(func(Change) { panic("boom") })
	hub.Subscribe(func(Change) { reached = true })

	assert.NotPanics(t, func() { hub.Publish(Change{Table: TableCourses}) })
	assert.True(t, reached)
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Publish(Change{Table: TableCourses}) })
	assert.Equal(t, 0, hub.Subscribers())
}

func TestWatchDeliversInitialAndRefreshedResults(t *testing.T) {
	hub := NewHub(nil)
	var version atomic.Int32
	results := make(chan int32, 8)

	view := Watch(context.Background(), hub, func(context.Context) (int32, error) {
		return version.Load(), nil
	}, func(v int32, err error) {
		assert.NoError(t, err)
		results <- v
	}, nil, TableCourses)
	defer view.Close()

	assert.Equal(t, int32(0), receive(t, results))

	version.Store(1)
	hub.Publish(Change{Table: TableCourses, Op: OpPut, CourseID: 1})
	assert.Equal(t, int32(1), receive(t, results))

	hub.Publish(Change{Table: TableStudents, Op: OpPut, StudentID: 1})
	select {
	case v := <-results:
		t.Fatalf("unexpected delivery %d for unrelated table", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchCoalescesBursts(t *testing.T) {
	hub := NewHub(nil)
	gate := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	var mu sync.Mutex
	var delivered []int32

	view := Watch(context.Background(), hub, func(context.Context) (int32, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-gate
		}
		return n, nil
	}, func(v int32, _ error) {
		mu.Lock()
		delivered = append(delivered, v)
		mu.Unlock()
	}, nil)
	defer view.Close()

	<-started
	for i := 0; i < 10; i++ {
		hub.Publish(Change{Table: TableSubscribes, StudentID: 1})
	}
	close(gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int32{1, 2}, delivered)
}

func TestWatchStopsOnCloseAndCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan int, 4)

	view := Watch(ctx, hub, func(context.Context) (int, error) { return 1, nil }, func(v int, _ error) {
		results <- v
	}, nil)
	receive(t, results)
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	select {
	case <-view.Done():
	case <-time.After(time.Second):
		t.Fatal("view did not stop after cancel")
	}
	assert.Equal(t, 0, hub.Subscribers())

	hub.Publish(Change{Table: TableCourses})
	select {
	case <-results:
		t.Fatal("delivery after cancel")
	case <-time.After(30 * time.Millisecond):
	}
	view.Close()
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}
