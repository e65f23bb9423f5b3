package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/raido/internal/board"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4 << 20
)

// ElementSink persists the element list received in an element-change
// event. Received lists replace the board content as is.
type ElementSink interface {
	ReplaceElements(ctx context.Context, boardID string, elements []board.Element) error
}

// WSHandler carries join, leave, cursor-update and element-change events
// both ways over a WebSocket.
type WSHandler struct {
	broker   Broker
	sink     ElementSink
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler returns a handler publishing through broker. sink may be nil,
// in which case element changes are relayed but not stored.
func NewWSHandler(broker Broker, sink ElementSink, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		broker: broker,
		sink:   sink,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and runs the connection until either side
// closes it. The user id and name come from the query string; a missing
// id gets a fresh one.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, boardID string) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = board.NewID()
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = userID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("board", boardID), slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := h.broker.Subscribe(boardID, userID)
	h.broker.Publish(Event{Type: EventJoin, BoardID: boardID, UserID: userID, Name: name, At: time.Now().UTC()})
	h.logger.Info("ws: joined", slog.String("board", boardID), slog.String("user", userID))

	done := make(chan struct{})
	go h.writeLoop(conn, sub, done)

	h.readLoop(r.Context(), conn, boardID, userID)

	h.broker.Unsubscribe(sub)
	<-done
	h.broker.Publish(Event{Type: EventLeave, BoardID: boardID, UserID: userID, At: time.Now().UTC()})
	h.logger.Info("ws: left", slog.String("board", boardID), slog.String("user", userID))
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, boardID, userID string) {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws: read", slog.String("user", userID), slog.String("error", err.Error()))
			}
			return
		}
		// The connection, not the client, decides who is speaking.
		ev, err := decodeFrom(data, boardID, userID)
		if err != nil {
			h.logger.Warn("ws: dropped message", slog.String("user", userID), slog.String("error", err.Error()))
			continue
		}
		if ev.Type == EventJoin || ev.Type == EventLeave {
			continue
		}
		if ev.Type == EventElementChange && h.sink != nil {
			if err := h.sink.ReplaceElements(ctx, boardID, ev.Elements); err != nil {
				h.logger.Error("ws: store elements", slog.String("board", boardID), slog.String("error", err.Error()))
				continue
			}
		}
		h.broker.Publish(ev)
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *Subscriber, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Warn("ws: write", slog.String("user", sub.UserID), slog.String("error", err.Error()))
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// decodeFrom parses a client message and stamps it with the connection's
// board, user and receive time.
func decodeFrom(data []byte, boardID, userID string) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("collab: decode event: %w", err)
	}
	ev.BoardID, ev.UserID = boardID, userID
	ev.Origin = ""
	ev.At = time.Now().UTC()
	if err := ev.Validate(); err != nil {
		return Event{}, fmt.Errorf("collab: invalid event: %w", err)
	}
	return ev, nil
}
