package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/board"
)

func recv(t *testing.T, s *Subscriber) Event {
	t.Helper()
	select {
	case ev := <-s.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func eventually(t *testing.T, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error(msg)
}

func drain(s *Subscriber) []Event {
	time.Sleep(50 * time.Millisecond)
	var out []Event
	for {
		select {
		case ev := <-s.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	h := NewHub(0, nil)
	defer h.Close()
	if h.SubscriberCount("b1") != 0 {
		t.Fatalf("expected 0 subscribers")
	}
	s := h.Subscribe("b1", "u1")
	if h.SubscriberCount("b1") != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	h.Unsubscribe(s)
	if h.SubscriberCount("b1") != 0 {
		t.Fatalf("expected 0 subscribers after unsub")
	}
	if _, ok := <-s.C; ok {
		t.Errorf("channel not closed after unsubscribe")
	}
}

func TestHubBoardsAreIsolated(t *testing.T) {
	h := NewHub(0, nil)
	defer h.Close()
	a := h.Subscribe("a", "u1")
	b := h.Subscribe("b", "u2")
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(ElementChange("a", "u3", []board.Element{{ID: "e1"}}))

	ev := recv(t, a)
	if ev.Type != EventElementChange || len(ev.Elements) != 1 {
		t.Errorf("event = %+v", ev)
	}
	if got := drain(b); len(got) != 0 {
		t.Errorf("board b received %d events from board a", len(got))
	}
}

func TestHubRosterAndNoCursorEcho(t *testing.T) {
	h := NewHub(0, nil)
	defer h.Close()
	s1 := h.Subscribe("b1", "u1")
	s2 := h.Subscribe("b1", "u2")
	defer h.Unsubscribe(s1)
	defer h.Unsubscribe(s2)

	h.Publish(Event{Type: EventJoin, BoardID: "b1", UserID: "u1", Name: "Ann"})
	h.Publish(Event{Type: EventJoin, BoardID: "b1", UserID: "u2", Name: "Bob"})
	h.Publish(Event{Type: EventCursor, BoardID: "b1", UserID: "u1", Cursor: &board.Point{X: 7, Y: 8}})

	var roster []Collaborator
	eventually(t, func() bool {
		roster = h.Roster("b1")
		return len(roster) == 2 && roster[0].Cursor != nil
	}, "roster never saw both joins and the cursor")
	if len(roster) != 2 || roster[0].UserID != "u1" || roster[1].UserID != "u2" {
		t.Fatalf("roster = %+v", roster)
	}
	if roster[0].Cursor.X != 7 {
		t.Errorf("cursor not tracked: %+v", roster[0])
	}

	for _, ev := range drain(s1) {
		if ev.Type == EventCursor {
			t.Errorf("cursor update echoed to its sender")
		}
	}
	cursors := 0
	for _, ev := range drain(s2) {
		if ev.Type == EventCursor {
			cursors++
		}
	}
	if cursors != 1 {
		t.Errorf("u2 cursor events = %d, want 1", cursors)
	}

	h.Publish(Event{Type: EventLeave, BoardID: "b1", UserID: "u1"})
	eventually(t, func() bool {
		got := h.Roster("b1")
		return len(got) == 1 && got[0].UserID == "u2"
	}, "u1 still in roster after leave")
}

func TestHubCursorThrottle(t *testing.T) {
	h := NewHub(500*time.Millisecond, nil)
	defer h.Close()
	s := h.Subscribe("b1", "watcher")
	defer h.Unsubscribe(s)

	h.Publish(Event{Type: EventJoin, BoardID: "b1", UserID: "u1"})
	h.Publish(Event{Type: EventJoin, BoardID: "b1", UserID: "u2"})
	for i := 0; i < 5; i++ {
		h.Publish(Event{Type: EventCursor, BoardID: "b1", UserID: "u1", Cursor: &board.Point{X: float64(i)}})
	}
	h.Publish(Event{Type: EventCursor, BoardID: "b1", UserID: "u2", Cursor: &board.Point{X: 1}})

	perUser := map[string]int{}
	for _, ev := range drain(s) {
		if ev.Type == EventCursor {
			perUser[ev.UserID]++
		}
	}
	if perUser["u1"] != 1 {
		t.Errorf("u1 cursor events = %d, want 1 (throttled)", perUser["u1"])
	}
	if perUser["u2"] != 1 {
		t.Errorf("u2 cursor events = %d, want 1", perUser["u2"])
	}
}

func TestHubDropsOnFullBuffer(t *testing.T) {
	h := NewHub(0, nil)
	defer h.Close()
	s := h.Subscribe("b1", "slow")
	defer h.Unsubscribe(s)

	for i := 0; i < 70; i++ {
		h.Publish(ElementChange("b1", "u1", nil))
	}
	// The loop must still answer after the buffer filled up.
	if h.SubscriberCount("b1") != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	eventually(t, func() bool { return h.Dropped() == 6 }, "expected 6 dropped deliveries")
}

func TestHubServeSSE(t *testing.T) {
	h := NewHub(0, nil)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/boards/b1/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeSSE(w, req, "b1")
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if h.SubscriberCount("b1") != 1 {
		t.Fatalf("expected 1 subscriber from handler")
	}

	h.Publish(ElementChange("b1", "u1", []board.Element{{ID: "e1", Type: board.TypeRectangle}}))
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: element-change") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, `"id":"e1"`) {
		t.Errorf("handler output missing elements: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if h.SubscriberCount("b1") != 0 {
		t.Errorf("subscriber not cleaned up after disconnect")
	}
}

func TestHubCloseClosesSubscribers(t *testing.T) {
	h := NewHub(0, nil)
	s := h.Subscribe("b1", "u1")

	h.Close()

	select {
	case _, ok := <-s.C:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if h.SubscriberCount("b1") != 0 || h.Roster("b1") != nil {
		t.Fatalf("closed hub still answers")
	}
	// Safe no-ops after close.
	h.Publish(ElementChange("b1", "u1", nil))
	h.Unsubscribe(s)
	if _, ok := <-h.Subscribe("b1", "u2").C; ok {
		t.Errorf("subscribe after close returned an open channel")
	}
}
