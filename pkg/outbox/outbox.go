package outbox

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const (
	StatusPending = "pending"
	StatusFailed  = "failed"
)

// Event 表示一个待发布的事件
type Event struct {
	ID          int64
	RoutingKey  string
	Payload     json.RawMessage
	TraceID     string
	Status      string
	RetryCount  int
	NextRetryAt time.Time
	CreatedAt   time.Time
}

// Repository 保存发布失败、等待重发的事件（进程内，有容量上限）
type Repository struct {
	mu       sync.Mutex
	nextID   int64
	capacity int
	events   map[int64]*Event
	now      func() time.Time
}

// NewRepository 创建新的 Outbox Repository；capacity <= 0 表示不限
func NewRepository(capacity int) *Repository {
	return &Repository{
		capacity: capacity,
		events:   make(map[int64]*Event),
		now:      time.Now,
	}
}

// InsertEvent 写入一个 pending 事件。满了返回 false，调用方负责记录丢弃
func (r *Repository) InsertEvent(routingKey string, payload json.RawMessage, traceID string) (*Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capacity > 0 && len(r.events) >= r.capacity {
		return nil, false
	}
	r.nextID++
	now := r.now()
	e := &Event{
		ID:         r.nextID,
		RoutingKey: routingKey,
		Payload:    payload,
		TraceID:    traceID,
		Status:     StatusPending,
		CreatedAt:  now,
	}
	r.events[e.ID] = e
	copied := *e
	return &copied, true
}

// GetPendingEvents 获取到期的 pending 事件，按创建顺序
func (r *Repository) GetPendingEvents(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var out []Event
	for _, e := range r.events {
		if e.Status == StatusPending && !e.NextRetryAt.After(now) {
			out = append(out, *e)
		}
	}
	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MarkAsSent 发送成功即删除
func (r *Repository) MarkAsSent(eventID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, eventID)
}

// MarkAsFailed 增加重试次数；超过 maxRetries 标记为 failed，不再自动重试
func (r *Repository) MarkAsFailed(eventID int64, maxRetries int) (status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return ""
	}
	e.RetryCount++
	if e.RetryCount >= maxRetries {
		e.Status = StatusFailed
		e.NextRetryAt = time.Time{}
	} else {
		e.Status = StatusPending
		e.NextRetryAt = r.now().Add(time.Duration(e.RetryCount) * 5 * time.Second) // 5s, 10s, 15s...
	}
	return e.Status
}

// ReplayEvent 重放事件（将状态重置为 pending）
func (r *Repository) ReplayEvent(eventID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return false
	}
	e.Status = StatusPending
	e.RetryCount = 0
	e.NextRetryAt = time.Time{}
	return true
}

// GetFailedEvents 获取所有失败的事件
func (r *Repository) GetFailedEvents(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if e.Status == StatusFailed {
			out = append(out, *e)
		}
	}
	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len 返回 outbox 中的事件数（pending + failed）
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func sortByID(events []Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
}
