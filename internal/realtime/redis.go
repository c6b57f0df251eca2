package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out over Redis PUBLISH/SUBSCRIBE on realtime:<roomID>.
type RedisBroker struct {
	client         *redis.Client
	buffer         int
	confirmTimeout time.Duration
	log            *slog.Logger
}

const defaultConfirmTimeout = 5 * time.Second

func NewRedisBroker(client *redis.Client, buffer int, log *slog.Logger) *RedisBroker {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &RedisBroker{client: client, buffer: buffer, confirmTimeout: defaultConfirmTimeout, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, roomID string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(roomID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channelName(roomID))
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns can be missed.
	confirmCtx, cancelConfirm := context.WithTimeout(ctx, b.confirmTimeout)
	_, err := pubsub.Receive(confirmCtx)
	cancelConfirm()
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan domain.Event, b.buffer),
		cancel: cancel,
	}

	go sub.run(ctx, roomID, b.log)

	return sub, nil
}

func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan domain.Event
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan domain.Event {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}

func (s *redisSubscription) run(ctx context.Context, roomID string, log *slog.Logger) {
	defer close(s.events)
	defer s.Close()

	log = log.With(slog.String("op", "realtime.redis.subscription"), slog.String("room_id", roomID))
	messages := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("skipping malformed event", sl.Err(err))
				continue
			}
			select {
			case s.events <- event:
			default:
				log.Debug("dropping realtime event", slog.String("event", string(event.Name)))
			}
		}
	}
}
