package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Table names a persisted relation whose changes are broadcast.
type Table string

// Tables tracked by the hub.
const (
	TableStudents   Table = "students"
	TableTeachers   Table = "teachers"
	TableCourses    Table = "courses"
	TableSubscribes Table = "subscribes"
)

// Op is the kind of committed write.
type Op string

// Supported operations.
const (
	OpPut    Op = "PUT"
	OpDelete Op = "DELETE"
)

// Change describes one committed write. Zero ids mean "any": a course delete
// publishes a subscribes change with StudentID 0 because every student's
// enrollments in that course are gone.
type Change struct {
	Table     Table
	Op        Op
	StudentID int64
	CourseID  int64
	TeacherID int64
	At        time.Time
}

// Handler receives committed changes. Handlers run on the publishing goroutine.
type Handler func(Change)

// Filter narrows which changes reach a handler.
type Filter func(Change) bool

type subscription struct {
	id      string
	handler Handler
	filter  Filter
	tables  map[Table]struct{}
}

// Hub fans committed changes out to subscribers.
//
// Publish is called by repositories after a transaction commits and before the
// write returns to its caller, so a subscriber that reacts synchronously (cache
// invalidation) is never observed late.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	logger *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[string]*subscription), logger: logger}
}

// Subscribe registers handler for the given tables (none = all tables).
func (h *Hub) Subscribe(handler Handler, tables ...Table) string {
	return h.SubscribeWithFilter(handler, nil, tables...)
}

// SubscribeWithFilter registers handler with an additional filter.
func (h *Hub) SubscribeWithFilter(handler Handler, filter Filter, tables ...Table) string {
	sub := &subscription{id: uuid.NewString(), handler: handler, filter: filter}
	if len(tables) > 0 {
		sub.tables = make(map[Table]struct{}, len(tables))
		for _, t := range tables {
			sub.tables[t] = struct{}{}
		}
	}
	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub.id
}

// Unsubscribe removes a subscription and reports whether it existed.
func (h *Hub) Unsubscribe(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return false
	}
	delete(h.subs, id)
	return true
}

// Subscribers returns the number of registered subscriptions.
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers changes to every matching subscriber. A nil hub is a no-op.
func (h *Hub) Publish(changes ...Change) {
	if h == nil || len(changes) == 0 {
		return
	}
	h.mu.RLock()
	subs := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	now := time.Now().UTC()
	for _, change := range changes {
		if change.At.IsZero() {
			change.At = now
		}
		for _, sub := range subs {
			if sub.matches(change) {
				h.invoke(sub, change)
			}
		}
	}
}

func (s *subscription) matches(change Change) bool {
	if s.tables != nil {
		if _, ok := s.tables[change.Table]; !ok {
			return false
		}
	}
	return s.filter == nil || s.filter(change)
}

func (h *Hub) invoke(sub *subscription, change Change) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("change handler panicked",
				zap.String("subscription", sub.id),
				zap.String("table", string(change.Table)),
				zap.Any("panic", r),
			)
		}
	}()
	sub.handler(change)
}
