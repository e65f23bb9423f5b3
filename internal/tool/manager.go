package tool

import (
	"errors"
	"fmt"
	"log/slog"
)

// State is the lifecycle state of the manager.
type State int

const (
	StateInactive State = iota
	StateActivating
	StateActive
	StateDrawing
	StateDeactivating
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDrawing:
		return "drawing"
	case StateDeactivating:
		return "deactivating"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Listener is notified after every activation with the new tool, or nil
// when the requested tool does not exist.
type Listener func(t Tool)

// Manager keeps at most one tool active and routes input to it. Errors
// from a tool abort the current gesture and are logged; they never leave
// a half-finished preview behind.
type Manager struct {
	registry  *Registry
	cb        *Callbacks
	logger    *slog.Logger
	active    Tool
	state     State
	listeners []Listener
}

// NewManager returns an inactive manager.
func NewManager(registry *Registry, cb *Callbacks, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{registry: registry, cb: cb, logger: logger}
}

// OnChange registers a listener.
func (m *Manager) OnChange(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Manager) Active() Tool        { return m.active }
func (m *Manager) State() State        { return m.state }
func (m *Manager) Registry() *Registry { return m.registry }

// ActiveName returns the active tool name or "".
func (m *Manager) ActiveName() string {
	if m.active == nil {
		return ""
	}
	return m.active.Name()
}

// SetCallbacks replaces the callbacks and reinstalls them on the active
// tool. The gesture in progress is cancelled.
func (m *Manager) SetCallbacks(cb *Callbacks) error {
	m.cb = cb
	if m.active == nil {
		return nil
	}
	m.active.Cancel()
	m.state = StateActive
	return m.active.Activate(cb)
}

// Activate switches to the named tool. The gesture in progress is
// cancelled and the old tool deactivated first. Listeners are notified
// with the new tool, or nil when name is unknown.
func (m *Manager) Activate(name string) error {
	m.Deactivate()

	m.state = StateActivating
	t, ok := m.registry.Get(name)
	if !ok {
		m.state = StateInactive
		m.notify(nil)
		return fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	// A tool missing callbacks still becomes active; its actions fail with
	// a *ContractError until SetCallbacks installs them.
	err := t.Activate(m.cb)
	if err != nil {
		m.report(t, "activate", err)
		if !errors.Is(err, ErrContractMissing) {
			m.state = StateInactive
			m.notify(nil)
			return err
		}
	}
	m.active = t
	m.state = StateActive
	m.logger.Debug("tool activated", slog.String("tool", name))
	m.notify(t)
	return err
}

// Deactivate cancels any gesture and deactivates the current tool.
func (m *Manager) Deactivate() {
	if m.active == nil {
		return
	}
	m.state = StateDeactivating
	m.active.Cancel()
	m.active.Deactivate()
	m.active = nil
	m.state = StateInactive
}

// Cancel aborts the gesture in progress.
func (m *Manager) Cancel() {
	if m.active == nil {
		return
	}
	m.active.Cancel()
	m.state = StateActive
}

func (m *Manager) PointerDown(ev PointerEvent) error {
	return m.dispatch("pointer-down", func(t Tool) error { return t.PointerDown(ev) })
}

func (m *Manager) PointerMove(ev PointerEvent) error {
	return m.dispatch("pointer-move", func(t Tool) error { return t.PointerMove(ev) })
}

func (m *Manager) PointerUp(ev PointerEvent) error {
	return m.dispatch("pointer-up", func(t Tool) error { return t.PointerUp(ev) })
}

// Key routes a key press. Escape always cancels through the manager.
func (m *Manager) Key(ev KeyEvent) (bool, error) {
	if m.active == nil {
		return false, nil
	}
	if ev.Key == KeyEscape {
		busy := m.active.Busy()
		m.Cancel()
		return busy, nil
	}
	var handled bool
	err := m.dispatch("key", func(t Tool) error {
		var err error
		handled, err = t.Key(ev)
		return err
	})
	return handled, err
}

func (m *Manager) dispatch(action string, fn func(Tool) error) error {
	t := m.active
	if t == nil {
		return nil
	}
	if err := fn(t); err != nil {
		m.report(t, action, err)
		t.Cancel()
		m.state = StateActive
		return err
	}
	if t.Busy() {
		m.state = StateDrawing
	} else {
		m.state = StateActive
	}
	return nil
}

func (m *Manager) report(t Tool, action string, err error) {
	attrs := []any{
		slog.String("tool", t.Name()),
		slog.String("action", action),
		slog.String("error", err.Error()),
	}
	if errors.Is(err, ErrContractMissing) {
		m.logger.Error("tool callback contract violated", attrs...)
		return
	}
	m.logger.Warn("tool action failed", attrs...)
}

func (m *Manager) notify(t Tool) {
	for _, l := range m.listeners {
		l(t)
	}
}
