package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/immxrtalbeast/burnchat/internal/repository"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
)

// TTLSynchronizer copies the metadata key's remaining lifetime onto every
// companion key of a room. The metadata TTL itself is never extended.
type TTLSynchronizer struct {
	rooms repository.RoomRepository
	log   *slog.Logger
}

func NewTTLSynchronizer(rooms repository.RoomRepository, log *slog.Logger) *TTLSynchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &TTLSynchronizer{rooms: rooms, log: log}
}

func (s *TTLSynchronizer) Sync(ctx context.Context, roomID string) error {
	const op = "service.ttl.sync"

	remaining, err := s.rooms.TTL(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		// Metadata already expired: drop whatever the last write left behind.
		if dropErr := s.rooms.ExpireCompanions(ctx, roomID, 0); dropErr != nil {
			s.log.Warn("failed to drop orphaned keys",
				slog.String("op", op),
				slog.String("room_id", roomID),
				sl.Err(dropErr),
			)
		}
		return wrapErr(op, err)
	}
	if err != nil {
		return wrapErr(op, err)
	}
	if remaining <= 0 {
		return nil
	}

	if err := s.rooms.ExpireCompanions(ctx, roomID, remaining); err != nil {
		return wrapErr(op, err)
	}
	return nil
}
