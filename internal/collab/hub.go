package collab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Broker is what transports need from the fan-out layer.
type Broker interface {
	Publish(ev Event)
	Subscribe(boardID, userID string) *Subscriber
	Unsubscribe(s *Subscriber)
}

// Subscriber receives the events of one board.
type Subscriber struct {
	BoardID string
	UserID  string
	C       <-chan Event
	ch      chan Event
}

type room struct {
	subs       map[*Subscriber]struct{}
	roster     *Roster
	lastCursor map[string]time.Time
}

type rosterReq struct {
	boardID string
	resp    chan []Collaborator
}

type countReq struct {
	boardID string
	resp    chan int
}

// Hub fans collaboration events out to the subscribers of each board and
// keeps a roster per board.
//
// Concurrency model: a single internal event loop owns every room. Public
// methods talk to the loop through channels, so no mutexes are required.
// Sends to subscribers never block; a full subscriber buffer drops the
// event for that subscriber.
type Hub struct {
	cursorMin time.Duration
	logger    *slog.Logger

	subscribeCh   chan *Subscriber
	unsubscribeCh chan *Subscriber
	publishCh     chan Event
	rosterReqCh   chan rosterReq
	countReqCh    chan countReq

	dropped atomic.Int64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewHub starts a hub that forwards at most one cursor update per user per
// cursorThrottle.
func NewHub(cursorThrottle time.Duration, logger *slog.Logger) *Hub {
	if cursorThrottle < 0 {
		cursorThrottle = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		cursorMin:     cursorThrottle,
		logger:        logger,
		subscribeCh:   make(chan *Subscriber),
		unsubscribeCh: make(chan *Subscriber),
		publishCh:     make(chan Event, 256),
		rosterReqCh:   make(chan rosterReq),
		countReqCh:    make(chan countReq),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	rooms := make(map[string]*room)
	get := func(boardID string) *room {
		r, ok := rooms[boardID]
		if !ok {
			r = &room{
				subs:       make(map[*Subscriber]struct{}),
				roster:     NewRoster(),
				lastCursor: make(map[string]time.Time),
			}
			rooms[boardID] = r
		}
		return r
	}

	broadcast := func(r *room, ev Event) {
		for s := range r.subs {
			// Cursor updates are not echoed to their sender.
			if ev.Type == EventCursor && s.UserID == ev.UserID {
				continue
			}
			select {
			case s.ch <- ev:
			default:
				h.dropped.Add(1)
			}
		}
	}

	for {
		select {
		case <-h.stopCh:
			for _, r := range rooms {
				for s := range r.subs {
					close(s.ch)
				}
			}
			return

		case s := <-h.subscribeCh:
			get(s.BoardID).subs[s] = struct{}{}

		case s := <-h.unsubscribeCh:
			r, ok := rooms[s.BoardID]
			if !ok {
				continue
			}
			if _, ok := r.subs[s]; ok {
				delete(r.subs, s)
				close(s.ch)
			}
			if len(r.subs) == 0 && r.roster.Len() == 0 {
				delete(rooms, s.BoardID)
			}

		case ev := <-h.publishCh:
			r := get(ev.BoardID)
			if ev.Type == EventCursor {
				now := time.Now()
				if now.Sub(r.lastCursor[ev.UserID]) < h.cursorMin {
					continue
				}
				r.lastCursor[ev.UserID] = now
			}
			if ev.Type == EventLeave {
				delete(r.lastCursor, ev.UserID)
			}
			r.roster.Apply(ev)
			broadcast(r, ev)
			if len(r.subs) == 0 && r.roster.Len() == 0 {
				delete(rooms, ev.BoardID)
			}

		case req := <-h.rosterReqCh:
			var list []Collaborator
			if r, ok := rooms[req.boardID]; ok {
				list = r.roster.List()
			}
			req.resp <- list

		case req := <-h.countReqCh:
			n := 0
			if r, ok := rooms[req.boardID]; ok {
				n = len(r.subs)
			}
			req.resp <- n
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}

// Subscribe registers a subscriber for boardID. userID may be empty for
// receive-only clients.
func (h *Hub) Subscribe(boardID, userID string) *Subscriber {
	ch := make(chan Event, 64)
	s := &Subscriber{BoardID: boardID, UserID: userID, C: ch, ch: ch}
	if h.closed.Load() {
		close(ch)
		return s
	}

	select {
	case h.subscribeCh <- s:
	case <-h.stopped:
		close(ch)
	}
	return s
}

// Unsubscribe removes s and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if h.closed.Load() {
		return
	}
	select {
	case h.unsubscribeCh <- s:
	case <-h.stopped:
	}
}

// Publish queues ev for every subscriber of its board.
func (h *Hub) Publish(ev Event) {
	if h.closed.Load() {
		return
	}
	select {
	case h.publishCh <- ev:
	case <-h.stopped:
	}
}

// Roster returns the collaborators present on boardID in join order.
func (h *Hub) Roster(boardID string) []Collaborator {
	if h.closed.Load() {
		return nil
	}
	resp := make(chan []Collaborator, 1)
	select {
	case h.rosterReqCh <- rosterReq{boardID: boardID, resp: resp}:
	case <-h.stopped:
		return nil
	}
	select {
	case list := <-resp:
		return list
	case <-h.stopped:
		return nil
	}
}

// SubscriberCount returns the number of subscribers of boardID.
func (h *Hub) SubscriberCount(boardID string) int {
	if h.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case h.countReqCh <- countReq{boardID: boardID, resp: resp}:
	case <-h.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-h.stopped:
		return 0
	}
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// ServeSSE streams the events of boardID to a receive-only client.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, boardID string) {
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

	sub := h.Subscribe(boardID, "")
	defer h.Unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("sse: marshal event", slog.String("error", err.Error()))
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
