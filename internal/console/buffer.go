package console

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferLines bounds a Buffer created with a non-positive limit.
const DefaultBufferLines = 10000

// EventType distinguishes console events delivered to subscribers.
type EventType string

const (
	EventLine  EventType = "line"
	EventClear EventType = "clear"
)

// Event is one change to a Buffer.
type Event struct {
	Type      EventType `json:"type"`
	Seq       uint64    `json:"seq"`
	Line      string    `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Buffer is an in-memory console keeping the most recent lines and
// broadcasting every change to subscribers.
//
// Publishing never blocks: a subscriber whose channel is full misses events.
type Buffer struct {
	mu          sync.RWMutex
	lines       []string
	limit       int
	seq         uint64
	subscribers map[chan Event]struct{}
}

// NewBuffer returns a Buffer retaining at most limit lines.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultBufferLines
	}
	return &Buffer{
		limit:       limit,
		subscribers: make(map[chan Event]struct{}),
	}
}

func (b *Buffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if over := len(b.lines) - b.limit; over > 0 {
		b.lines = append(b.lines[:0:0], b.lines[over:]...)
	}
	b.publish(Event{Type: EventLine, Line: line})
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = nil
	b.publish(Event{Type: EventClear})
}

// Lines returns a snapshot of the retained lines.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Subscribe returns a channel receiving every subsequent event and a function
// that unsubscribes and closes the channel.
func (b *Buffer) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, ch)
			close(ch)
		})
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Buffer) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// publish must be called with b.mu held.
func (b *Buffer) publish(evt Event) {
	b.seq++
	evt.Seq = b.seq
	evt.Timestamp = time.Now()
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			slog.Warn("Console subscriber full, dropping event", slog.Uint64("seq", evt.Seq))
		}
	}
}
