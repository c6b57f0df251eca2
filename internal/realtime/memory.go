package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/burnchat/internal/domain"
)

// MemoryBroker keeps subscribers in process. Slow subscribers lose events
// instead of blocking publishers.
type MemoryBroker struct {
	mu     sync.RWMutex
	rooms  map[string]map[*memorySubscription]struct{}
	buffer int
	log    *slog.Logger
}

func NewMemoryBroker(buffer int, log *slog.Logger) *MemoryBroker {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &MemoryBroker{
		rooms:  make(map[string]map[*memorySubscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, roomID string, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	subs := make([]*memorySubscription, 0, len(b.rooms[roomID]))
	for sub := range b.rooms[roomID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(event, b.log)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &memorySubscription{
		broker: b,
		roomID: roomID,
		events: make(chan domain.Event, b.buffer),
	}

	b.mu.Lock()
	if b.rooms[roomID] == nil {
		b.rooms[roomID] = make(map[*memorySubscription]struct{})
	}
	b.rooms[roomID][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	rooms := b.rooms
	b.rooms = make(map[string]map[*memorySubscription]struct{})
	b.mu.Unlock()

	for _, subs := range rooms {
		for sub := range subs {
			sub.closeEvents()
		}
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.rooms[sub.roomID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.rooms, sub.roomID)
	}
}

type memorySubscription struct {
	broker *MemoryBroker
	roomID string
	events chan domain.Event

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) Events() <-chan domain.Event {
	return s.events
}

func (s *memorySubscription) deliver(event domain.Event, log *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		log.Debug("dropping realtime event", slog.String("room_id", s.roomID), slog.String("event", string(event.Name)))
	}
}

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	s.closeEvents()
	return nil
}

func (s *memorySubscription) closeEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
