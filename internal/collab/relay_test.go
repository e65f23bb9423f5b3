package collab

import (
	"encoding/json"
	"testing"
)

func TestRelayReceiveSkipsOwnEvents(t *testing.T) {
	hub := NewHub(0, nil)
	defer hub.Close()
	r := NewRelay(hub, nil, "raido", nil)
	s := hub.Subscribe("b1", "local")
	defer hub.Unsubscribe(s)

	own, _ := json.Marshal(Event{Type: EventJoin, BoardID: "b1", UserID: "u1", Origin: r.Origin()})
	if r.receive(string(own)) {
		t.Errorf("relay re-published its own event")
	}
	remote, _ := json.Marshal(Event{Type: EventJoin, BoardID: "b1", UserID: "u2", Origin: "other"})
	if !r.receive(string(remote)) {
		t.Fatalf("remote event not delivered")
	}
	if r.receive("{") {
		t.Errorf("malformed payload delivered")
	}

	ev := recv(t, s)
	if ev.UserID != "u2" || ev.Origin != "other" {
		t.Errorf("delivered event = %+v", ev)
	}
}

func TestRelayPublishStampsOrigin(t *testing.T) {
	hub := NewHub(0, nil)
	defer hub.Close()
	r := NewRelay(hub, nil, "raido", nil)
	s := r.Subscribe("b1", "local")
	defer r.Unsubscribe(s)

	r.Publish(ElementChange("b1", "u1", nil))

	if ev := recv(t, s); ev.Origin != r.Origin() {
		t.Errorf("local delivery origin = %q, want %q", ev.Origin, r.Origin())
	}
	select {
	case ev := <-r.out:
		if ev.Origin != r.Origin() {
			t.Errorf("queued origin = %q", ev.Origin)
		}
	default:
		t.Fatal("event not queued for redis")
	}
}
