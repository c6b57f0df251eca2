// Package realtime fans room events out to whoever is currently listening.
// Delivery is best effort and at most once; nothing is persisted.
package realtime

import (
	"context"

	"github.com/immxrtalbeast/burnchat/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, roomID string, event domain.Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}

type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription delivers events for one room until Close is called
// or the context passed to Subscribe is done.
type Subscription interface {
	Events() <-chan domain.Event
	Close() error
}

// Emitter resolves per-room channels on top of a Publisher.
type Emitter struct {
	pub Publisher
}

func NewEmitter(pub Publisher) *Emitter {
	return &Emitter{pub: pub}
}

func (e *Emitter) Channel(roomID string) *Channel {
	return &Channel{roomID: roomID, pub: e.pub}
}

type Channel struct {
	roomID string
	pub    Publisher
}

func (c *Channel) Emit(ctx context.Context, payload domain.EventPayload) error {
	return c.pub.Publish(ctx, c.roomID, domain.NewEvent(payload))
}

func channelName(roomID string) string {
	return "realtime:" + roomID
}
