// Package collab tracks who is on a board and moves presence and element
// events between them.
package collab

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/board"
)

// EventType names a collaboration event.
type EventType string

const (
	EventJoin          EventType = "join"
	EventLeave         EventType = "leave"
	EventCursor        EventType = "cursor-update"
	EventElementChange EventType = "element-change"
)

// Event is the wire shape shared by every transport. Element-change events
// carry the full replacement element list.
type Event struct {
	Type      EventType       `json:"type"`
	BoardID   string          `json:"board_id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name,omitempty"`
	Color     string          `json:"color,omitempty"`
	Cursor    *board.Point    `json:"cursor,omitempty"`
	Selection *string         `json:"selection,omitempty"`
	Elements  []board.Element `json:"elements,omitempty"`
	// Origin identifies the process that first published the event.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Validate checks the event has a known type and a sender.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required,
			validation.In(EventJoin, EventLeave, EventCursor, EventElementChange)),
		validation.Field(&e.BoardID, validation.Required),
		validation.Field(&e.UserID, validation.Required),
	)
}

// Decode parses and validates one JSON event.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("collab: decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, fmt.Errorf("collab: invalid event: %w", err)
	}
	return ev, nil
}

// ElementChange builds an element-change event for boardID.
func ElementChange(boardID, userID string, elements []board.Element) Event {
	return Event{
		Type:     EventElementChange,
		BoardID:  boardID,
		UserID:   userID,
		Elements: elements,
		At:       time.Now().UTC(),
	}
}
