package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
	"github.com/nats-io/nats.go"
)

// NATSBroker fans events out over core NATS subjects room.<roomID>.events.
type NATSBroker struct {
	nc     *nats.Conn
	buffer int
	log    *slog.Logger
}

func NewNATSBroker(nc *nats.Conn, buffer int, log *slog.Logger) *NATSBroker {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &NATSBroker{nc: nc, buffer: buffer, log: log}
}

func subjectName(roomID string) string {
	return "room." + roomID + ".events"
}

func (b *NATSBroker) Publish(ctx context.Context, roomID string, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.nc.Publish(subjectName(roomID), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	sub := &natsSubscription{events: make(chan domain.Event, b.buffer)}
	log := b.log.With(slog.String("op", "realtime.nats.subscription"), slog.String("room_id", roomID))

	natsSub, err := b.nc.Subscribe(subjectName(roomID), func(msg *nats.Msg) {
		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Warn("skipping malformed event", sl.Err(err))
			return
		}
		sub.deliver(event, log)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = natsSub.Unsubscribe()
		return nil, fmt.Errorf("subscribe flush: %w", err)
	}
	sub.sub = natsSub

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub, nil
}

func (b *NATSBroker) Close() error {
	return b.nc.Drain()
}

type natsSubscription struct {
	sub    *nats.Subscription
	events chan domain.Event

	mu     sync.Mutex
	closed bool
}

func (s *natsSubscription) Events() <-chan domain.Event {
	return s.events
}

func (s *natsSubscription) deliver(event domain.Event, log *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		log.Debug("dropping realtime event", slog.String("event", string(event.Name)))
	}
}

func (s *natsSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return s.sub.Unsubscribe()
}
