// Package progress fans task progress messages out to live subscribers.
package progress

import (
	"sync"
	"time"
)

const subscriberBuffer = 32

// Event is one progress notification of a dubbing task.
type Event struct {
	TaskId  string    `json:"task_id"`
	Stage   string    `json:"stage"`
	Status  uint8     `json:"status"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
	Final   bool      `json:"final"`
	Time    time.Time `json:"time"`
}

// Hub keeps per-task subscriber sets. Slow subscribers lose events rather than
// blocking the pipeline.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
	last map[string]Event
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
		last: make(map[string]Event),
	}
}

// Publish delivers ev to every subscriber of ev.TaskId.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[ev.TaskId] = ev
	for ch := range h.subs[ev.TaskId] {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Final {
		delete(h.last, ev.TaskId)
	}
}

// Subscribe returns a channel of events for taskId, starting with the latest
// known event if the task is running. Call cancel to release it.
func (h *Hub) Subscribe(taskId string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[taskId] == nil {
		h.subs[taskId] = make(map[chan Event]struct{})
	}
	h.subs[taskId][ch] = struct{}{}
	if ev, ok := h.last[taskId]; ok {
		ch <- ev
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[taskId], ch)
			if len(h.subs[taskId]) == 0 {
				delete(h.subs, taskId)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers for taskId.
func (h *Hub) Subscribers(taskId string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[taskId])
}
