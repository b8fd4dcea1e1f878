// Package sse implements a Server-Sent Events broker for navigation updates.
//
// Subscribers attach to a topic, normally a disclosure session id. Events
// published with an empty topic reach every subscriber; topic events reach
// only the subscribers of that topic.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeDisclosureChanged   = "disclosure.changed"
	TypeNavigationRequested = "navigation.requested"
	TypeCapabilitiesChanged = "capabilities.changed"
	TypePolicyCreated       = "policy.created"
	TypePolicyUpdated       = "policy.updated"
	TypePolicyDeleted       = "policy.deleted"
)

// Event represents an SSE event. An empty Topic broadcasts.
type Event struct {
	Topic string `json:"-"`
	Type  string `json:"type"`
	Data  any    `json:"data"`
}

type subscribeReq struct {
	ch    chan []byte
	topic string
}

type policyEventReq struct {
	kind  string
	path  string
	actor string
}

// Broker manages SSE client connections and routes events to them.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + capabilities throttle timestamp). Public methods communicate with
// this loop through channels, so no mutexes are required.
type Broker struct {
	capsMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	closeTopicCh  chan string
	publishCh     chan Event
	policyEventCh chan policyEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. capabilitiesThrottle bounds how often
// capabilities.changed is emitted while policies churn.
func NewBroker(capabilitiesThrottle time.Duration) *Broker {
	if capabilitiesThrottle <= 0 {
		capabilitiesThrottle = 2 * time.Second
	}

	b := &Broker{
		capsMin:       capabilitiesThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		closeTopicCh:  make(chan string),
		publishCh:     make(chan Event, 256),
		policyEventCh: make(chan policyEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastCaps time.Time

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, topic := range clients {
			if event.Topic != "" && event.Topic != topic {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = req.topic

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case topic := <-b.closeTopicCh:
			for ch, t := range clients {
				if t == topic {
					delete(clients, ch)
					close(ch)
				}
			}

		case event := <-b.publishCh:
			send(event)

		case req := <-b.policyEventCh:
			data := map[string]string{"path": req.path, "actor": req.actor}
			switch req.kind {
			case "created":
				send(Event{Type: TypePolicyCreated, Data: data})
			case "updated":
				send(Event{Type: TypePolicyUpdated, Data: data})
			case "deleted":
				send(Event{Type: TypePolicyDeleted, Data: data})
			}

			now := time.Now()
			if now.Sub(lastCaps) >= b.capsMin {
				lastCaps = now
				send(Event{Type: TypeCapabilitiesChanged, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client listening to topic and returns its channel. An
// empty topic receives broadcasts only.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, topic: topic}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// CloseTopic disconnects every subscriber of topic.
func (b *Broker) CloseTopic(topic string) {
	if b.closed.Load() || topic == "" {
		return
	}
	select {
	case b.closeTopicCh <- topic:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish routes an event to its topic, or to everyone if it has none.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishPolicyEvent publishes a policy change and a throttled
// capabilities.changed event.
func (b *Broker) PublishPolicyEvent(kind, path, actor string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.policyEventCh <- policyEventReq{kind: kind, path: path, actor: actor}:
	case <-b.stopped:
	}
}

// ServeHTTP is the broadcast-only SSE endpoint (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.ServeTopic(w, r, "")
}

// ServeTopic streams the events of topic until the client disconnects or
// the topic is closed.
func (b *Broker) ServeTopic(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(topic)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
