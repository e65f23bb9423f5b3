package collab

import (
	"hash/fnv"
	"time"

	"github.com/starford/raido/internal/board"
)

// Palette is the set of colors assigned to collaborators without one.
var Palette = []string{
	"#e03131", "#2f9e44", "#1971c2", "#f08c00",
	"#9c36b5", "#0c8599", "#e8590c", "#5c940d",
}

// ColorFor returns the palette color for userID. The same id always gets
// the same color.
func ColorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return Palette[h.Sum32()%uint32(len(Palette))]
}

// Collaborator is a remote participant tracked for presence only.
type Collaborator struct {
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Color     string       `json:"color"`
	Cursor    *board.Point `json:"cursor,omitempty"`
	Selection *string      `json:"selection,omitempty"`
	Active    bool         `json:"active"`
	LastSeen  time.Time    `json:"last_seen"`
}

// Roster is the set of collaborators on one board, keyed by user id. It is
// not safe for concurrent use.
type Roster struct {
	entries map[string]*Collaborator
	order   []string
	now     func() time.Time
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[string]*Collaborator), now: time.Now}
}

// Add inserts c or replaces the identity fields of an existing entry.
// Cursor and selection of an existing entry are kept.
func (r *Roster) Add(c Collaborator) {
	if c.Color == "" {
		c.Color = ColorFor(c.UserID)
	}
	c.Active = true
	c.LastSeen = r.now().UTC()
	if old, ok := r.entries[c.UserID]; ok {
		old.Name, old.Color = c.Name, c.Color
		old.Active, old.LastSeen = true, c.LastSeen
		return
	}
	r.entries[c.UserID] = &c
	r.order = append(r.order, c.UserID)
}

// Remove deletes userID. It reports whether the id was present.
func (r *Roster) Remove(userID string) bool {
	if _, ok := r.entries[userID]; !ok {
		return false
	}
	delete(r.entries, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// UpdateCursor sets the cursor of an existing entry. Unknown ids are
// ignored; late updates from a participant that already left are dropped.
func (r *Roster) UpdateCursor(userID string, p *board.Point) bool {
	c, ok := r.entries[userID]
	if !ok {
		return false
	}
	if p != nil {
		cp := *p
		p = &cp
	}
	c.Cursor = p
	c.LastSeen = r.now().UTC()
	return true
}

// UpdateSelection sets the selected element id of an existing entry.
func (r *Roster) UpdateSelection(userID string, id *string) bool {
	c, ok := r.entries[userID]
	if !ok {
		return false
	}
	if id != nil {
		s := *id
		id = &s
	}
	c.Selection = id
	return true
}

func (r *Roster) SetActive(userID string, active bool) bool {
	c, ok := r.entries[userID]
	if !ok {
		return false
	}
	c.Active = active
	return true
}

// Get returns a copy of the entry for userID.
func (r *Roster) Get(userID string) (Collaborator, bool) {
	c, ok := r.entries[userID]
	if !ok {
		return Collaborator{}, false
	}
	return *c, true
}

// List returns every collaborator in join order.
func (r *Roster) List() []Collaborator {
	out := make([]Collaborator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.entries[id])
	}
	return out
}

func (r *Roster) Len() int { return len(r.order) }

// Apply folds a presence event into the roster. Element-change events are
// not presence and report false.
func (r *Roster) Apply(ev Event) bool {
	switch ev.Type {
	case EventJoin:
		r.Add(Collaborator{UserID: ev.UserID, Name: ev.Name, Color: ev.Color})
		return true
	case EventLeave:
		return r.Remove(ev.UserID)
	case EventCursor:
		ok := r.UpdateCursor(ev.UserID, ev.Cursor)
		if ok && ev.Selection != nil {
			r.UpdateSelection(ev.UserID, ev.Selection)
		}
		return ok
	}
	return false
}
