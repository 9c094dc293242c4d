package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/elnsync/internal/events"
)

const (
	// sseRingBufferSize is how many recent events are kept for
	// Last-Event-ID replay.
	sseRingBufferSize = 1000

	sseKeepaliveInterval = 15 * time.Second
)

// EventStream fans published events out to server-sent event clients.
// Wrap the real publisher with Publisher so the notebook service and the
// registry feed it.
type EventStream struct {
	hub    *sseHub
	logger *slog.Logger
}

// NewEventStream returns an EventStream with no clients.
func NewEventStream(logger *slog.Logger) *EventStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStream{hub: newSSEHub(), logger: logger}
}

// Publisher returns a publisher that streams every event to SSE clients and
// then forwards it to next. A nil next only streams.
func (e *EventStream) Publisher(next events.Publisher) events.Publisher {
	if next == nil {
		next = &events.NoopPublisher{}
	}
	return &teePublisher{next: next, stream: e}
}

// broadcast encodes event and sends it to matching clients.
func (e *EventStream) broadcast(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("failed to marshal event for SSE broadcast", "topic", topic, "err", err)
		return
	}
	e.hub.broadcast(topic, payload)
}

type teePublisher struct {
	next   events.Publisher
	stream *EventStream
}

func (p *teePublisher) Publish(ctx context.Context, topic string, event any) error {
	p.stream.broadcast(topic, event)
	return p.next.Publish(ctx, topic, event)
}

func (p *teePublisher) Close() error { return p.next.Close() }

type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// sseHub tracks connected clients and a ring of recent events.
type sseHub struct {
	mu      sync.RWMutex
	clients map[*sseClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [sseRingBufferSize]sseEvent
	ringPos int
	ringLen int
}

type sseClient struct {
	topics []string // empty matches every topic
	ch     chan *sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast records the event and offers it to every matching client.
// Slow clients miss events instead of blocking the publisher.
func (h *sseHub) broadcast(topic string, payload []byte) {
	evt := &sseEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % sseRingBufferSize
	if h.ringLen < sseRingBufferSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matchesTopic(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan *sseEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *sseHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// eventsSince returns the buffered events newer than lastID, oldest first.
func (h *sseHub) eventsSince(lastID uint64) []*sseEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var out []*sseEvent
	start := (h.ringPos - h.ringLen + sseRingBufferSize) % sseRingBufferSize
	for i := range h.ringLen {
		evt := &h.ring[(start+i)%sseRingBufferSize]
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

func (c *sseClient) matchesTopic(topic string) bool {
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

// matchTopicPattern matches a dotted topic NATS style: "*" matches one
// segment and a trailing ">" matches one or more.
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

// handleEventStream handles GET /v1/events/stream. The optional "topics"
// query parameter filters by topic pattern; Last-Event-ID replays missed
// events still in the ring.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	hub := s.stream.hub
	client := hub.subscribe(queryList(r, "topics"))
	defer hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if lastID, err := strconv.ParseUint(last, 10, 64); err == nil {
			for _, evt := range hub.eventsSince(lastID) {
				if client.matchesTopic(evt.Topic) {
					writeSSEEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("event stream closed", "request_id", RequestID(r.Context()))
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, evt *sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
