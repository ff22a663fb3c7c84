package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// eventRingSize is the number of recent events kept for Last-Event-ID
	// replay.
	eventRingSize = 1000

	// sseKeepaliveInterval is how often keepalive comments are sent.
	sseKeepaliveInterval = 15 * time.Second

	// sseClientBuffer is the per-client queue; a full queue drops events.
	sseClientBuffer = 64
)

// streamEvent is one registry event as delivered to SSE clients.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// eventRing keeps the most recent events in arrival order.
type eventRing struct {
	buf  [eventRingSize]streamEvent
	pos  int
	size int
}

func (r *eventRing) push(e streamEvent) {
	r.buf[r.pos] = e
	r.pos = (r.pos + 1) % eventRingSize
	if r.size < eventRingSize {
		r.size++
	}
}

// since returns the buffered events with ID > lastID, oldest first.
func (r *eventRing) since(lastID uint64) []streamEvent {
	var out []streamEvent
	start := (r.pos - r.size + eventRingSize) % eventRingSize
	for i := range r.size {
		e := r.buf[(start+i)%eventRingSize]
		if e.ID > lastID {
			out = append(out, e)
		}
	}
	return out
}

// EventHub fans registry events out to connected SSE clients. It implements
// events.Publisher so the registry can publish to it directly.
type EventHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	nextID  uint64
	ring    eventRing
}

type sseClient struct {
	topics []string // NATS-style patterns; empty matches everything
	ch     chan streamEvent
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*sseClient]struct{})}
}

// Publish encodes event and broadcasts it. It never blocks on slow clients.
func (h *EventHub) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	e := streamEvent{ID: h.nextID, Topic: topic, Data: data}
	h.ring.push(e)
	for c := range h.clients {
		if !c.matches(topic) {
			continue
		}
		select {
		case c.ch <- e:
		default:
		}
	}
	return nil
}

// Close disconnects nothing; clients end with their requests.
func (h *EventHub) Close() error {
	return nil
}

// subscribe registers a client and returns the events it missed since
// lastID. Replay and registration happen under one lock so no event is lost
// or duplicated between them.
func (h *EventHub) subscribe(topics []string, lastID uint64, replay bool) (*sseClient, []streamEvent) {
	c := &sseClient{topics: topics, ch: make(chan streamEvent, sseClientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if !replay {
		return c, nil
	}
	var missed []streamEvent
	for _, e := range h.ring.since(lastID) {
		if c.matches(e.Topic) {
			missed = append(missed, e)
		}
	}
	return c, missed
}

func (h *EventHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (c *sseClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern.
// "*" matches one segment and a trailing ">" matches one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")
	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}
	return len(patParts) == len(topParts)
}

// handleEventStream handles GET /v1/events/stream?topics=a,b.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || s.hub == nil {
		writeError(w, http.StatusNotImplemented, "streaming_unavailable", "Event streaming is not available")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	client, missed := s.hub.subscribe(topics, lastID, err == nil)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, e := range missed {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-client.ch:
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, e streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.ID, e.Topic, e.Data)
}
