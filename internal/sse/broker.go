// Package sse implements the board catalog feed: a Server-Sent Events
// stream announcing boards created, updated or deleted anywhere in the
// store, for clients showing the board list.
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
	BoardCreated   = "board.created"
	BoardUpdated   = "board.updated"
	BoardDeleted   = "board.deleted"
	CatalogChanged = "catalog.changed"
)

// Event is one catalog notification.
type Event struct {
	Type    string    `json:"type"`
	BoardID string    `json:"board_id,omitempty"`
	At      time.Time `json:"at"`
}

// Broker fans catalog events out to SSE clients.
//
// A single event loop owns the client set and the catalog.changed
// throttle; public methods talk to it over channels.
type Broker struct {
	catalogMin time.Duration
	now        func() time.Time

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. A burst of board events produces at most one
// catalog.changed per throttle interval; a non-positive throttle means 2s.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		catalogMin:    throttle,
		now:           func() time.Time { return time.Now().UTC() },
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastCatalog time.Time

	broadcast := func(ev Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client
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

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			broadcast(ev)
			if ev.Type == CatalogChanged {
				continue
			}
			if ev.At.Sub(lastCatalog) >= b.catalogMin {
				lastCatalog = ev.At
				broadcast(Event{Type: CatalogChanged, At: ev.At})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes every client channel. It is safe
// to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. The returned channel is closed on Unsubscribe
// or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
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

// Publish sends ev to every client. A zero At is stamped with the current
// time.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	if ev.At.IsZero() {
		ev.At = b.now()
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// BoardChanged maps a change kind ("created", "updated", "deleted") to its
// event. Unknown kinds are dropped.
func (b *Broker) BoardChanged(kind, id string) {
	var typ string
	switch kind {
	case "created":
		typ = BoardCreated
	case "updated":
		typ = BoardUpdated
	case "deleted":
		typ = BoardDeleted
	default:
		return
	}
	b.Publish(Event{Type: typ, BoardID: id})
}

// ServeHTTP streams catalog events until the client disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
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
