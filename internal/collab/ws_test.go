package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/raido/internal/board"
)

type chanSink struct {
	got chan []board.Element
}

func (s *chanSink) ReplaceElements(_ context.Context, _ string, elements []board.Element) error {
	s.got <- elements
	return nil
}

func wsTestServer(t *testing.T) (*Hub, *chanSink, string) {
	t.Helper()
	hub := NewHub(0, nil)
	t.Cleanup(hub.Close)
	sink := &chanSink{got: make(chan []board.Element, 4)}
	h := NewWSHandler(hub, sink, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, "b1")
	}))
	t.Cleanup(srv.Close)
	return hub, sink, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user+"&name="+user, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads events until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want EventType) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if ev.Type == want {
			return ev
		}
	}
}

func TestWSJoinAndElementChange(t *testing.T) {
	hub, sink, url := wsTestServer(t)
	ann := dial(t, url, "ann")
	readUntil(t, ann, EventJoin)
	bob := dial(t, url, "bob")

	joined := readUntil(t, ann, EventJoin)
	if joined.UserID != "bob" || joined.BoardID != "b1" {
		t.Errorf("join event = %+v", joined)
	}

	// The connection decides the sender; a spoofed user id is replaced.
	msg := Event{
		Type:     EventElementChange,
		UserID:   "mallory",
		Elements: []board.Element{{ID: "e1", Type: board.TypeRectangle, Width: 10, Height: 10}},
	}
	if err := bob.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	got := readUntil(t, ann, EventElementChange)
	if got.UserID != "bob" || len(got.Elements) != 1 || got.Elements[0].ID != "e1" {
		t.Errorf("element-change = %+v", got)
	}
	select {
	case stored := <-sink.got:
		if len(stored) != 1 {
			t.Errorf("stored %d elements, want 1", len(stored))
		}
	case <-time.After(time.Second):
		t.Fatal("element change not stored")
	}

	eventually(t, func() bool { return len(hub.Roster("b1")) == 2 }, "roster never reached 2")
}

func TestWSCursorAndLeave(t *testing.T) {
	hub, _, url := wsTestServer(t)
	ann := dial(t, url, "ann")
	readUntil(t, ann, EventJoin)
	bob := dial(t, url, "bob")
	readUntil(t, ann, EventJoin)

	if err := bob.WriteJSON(Event{Type: EventCursor, Cursor: &board.Point{X: 4, Y: 2}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	cur := readUntil(t, ann, EventCursor)
	if cur.UserID != "bob" || cur.Cursor == nil || cur.Cursor.X != 4 {
		t.Errorf("cursor event = %+v", cur)
	}

	bob.Close()
	left := readUntil(t, ann, EventLeave)
	if left.UserID != "bob" {
		t.Errorf("leave event = %+v", left)
	}
	eventually(t, func() bool {
		r := hub.Roster("b1")
		return len(r) == 1 && r[0].UserID == "ann"
	}, "bob still on the roster")
}

func TestWSDropsInvalidMessages(t *testing.T) {
	_, sink, url := wsTestServer(t)
	ann := dial(t, url, "ann")
	readUntil(t, ann, EventJoin)

	if err := ann.WriteMessage(websocket.TextMessage, []byte(`{"type":"wave"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := ann.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	// The connection survives and later messages still flow.
	if err := ann.WriteJSON(Event{Type: EventElementChange}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	readUntil(t, ann, EventElementChange)
	select {
	case <-sink.got:
	case <-time.After(time.Second):
		t.Fatal("valid message after invalid ones was not stored")
	}
}
