package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Relay connects the hubs of several processes through one Redis pub/sub
// channel. Local events are delivered to the local hub immediately and
// forwarded to Redis in the background; events read back from Redis that
// this process published are ignored.
type Relay struct {
	hub     *Hub
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
	out     chan Event
}

// NewRelay returns a relay publishing on channel. Call Run to start it.
func NewRelay(hub *Hub, client *redis.Client, channel string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		hub:     hub,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
		out:     make(chan Event, 256),
	}
}

// Origin is the id stamped on events published by this process.
func (r *Relay) Origin() string { return r.origin }

// Publish delivers ev locally and queues it for Redis. It never blocks; a
// full queue drops the remote copy.
func (r *Relay) Publish(ev Event) {
	if ev.Origin == "" {
		ev.Origin = r.origin
	}
	r.hub.Publish(ev)
	select {
	case r.out <- ev:
	default:
		r.logger.Warn("relay: queue full, event not forwarded",
			slog.String("board", ev.BoardID), slog.String("type", string(ev.Type)))
	}
}

func (r *Relay) Subscribe(boardID, userID string) *Subscriber {
	return r.hub.Subscribe(boardID, userID)
}

func (r *Relay) Unsubscribe(s *Subscriber) { r.hub.Unsubscribe(s) }

// Run forwards queued events to Redis and remote events to the hub until
// ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("relay: subscribe %q: %w", r.channel, err)
	}
	incoming := pubsub.Channel()

	r.logger.Info("relay: started", slog.String("channel", r.channel), slog.String("origin", r.origin))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.out:
			payload, err := json.Marshal(ev)
			if err != nil {
				r.logger.Warn("relay: marshal", slog.String("error", err.Error()))
				continue
			}
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
				r.logger.Warn("relay: publish", slog.String("error", err.Error()))
			}
		case msg, ok := <-incoming:
			if !ok {
				return fmt.Errorf("relay: subscription %q closed", r.channel)
			}
			r.receive(msg.Payload)
		}
	}
}

// receive hands a remote payload to the local hub.
func (r *Relay) receive(payload string) bool {
	ev, err := Decode([]byte(payload))
	if err != nil {
		r.logger.Warn("relay: dropped message", slog.String("error", err.Error()))
		return false
	}
	if ev.Origin == r.origin {
		return false
	}
	r.hub.Publish(ev)
	return true
}
