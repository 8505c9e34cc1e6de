package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Event is one server-sent event addressed to every subscriber of Topic.
type Event struct {
	Topic string
	Name  string
	Data  any
}

// Hub fans events out to subscribers grouped by topic. A nil *Hub drops everything.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      16,
	}
}

// Subscribe registers a subscriber for topic and returns its channel and cleanup function.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[topic], ch)
			close(ch)
			if len(h.subscribers[topic]) == 0 {
				delete(h.subscribers, topic)
			}
		})
	}
	return ch, cleanup
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.Topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// Write encodes one event in text/event-stream framing.
func Write(w io.Writer, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return fmt.Errorf("failed to write event %s: %w", name, err)
	}
	return nil
}
