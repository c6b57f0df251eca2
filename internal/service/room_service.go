package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/realtime"
	"github.com/immxrtalbeast/burnchat/internal/repository"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
)

const maxCreateAttempts = 5

type RoomSettings struct {
	TTL             time.Duration
	DefaultMaxUsers int
	MinUsers        int
	MaxUsers        int
}

func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		TTL:             20 * time.Minute,
		DefaultMaxUsers: domain.DefaultMaxUsers,
		MinUsers:        domain.MinMaxUsers,
		MaxUsers:        domain.MaxMaxUsers,
	}
}

type RoomInfo struct {
	ConnectedCount int `json:"connectedCount"`
	MaxUsers       int `json:"maxUsers"`
}

type RoomService struct {
	rooms    repository.RoomRepository
	events   *realtime.Emitter
	settings RoomSettings
	log      *slog.Logger
}

func NewRoomService(rooms repository.RoomRepository, events *realtime.Emitter, settings RoomSettings, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:    rooms,
		events:   events,
		settings: settings,
		log:      log,
	}
}

func (s *RoomService) CreateRoom(ctx context.Context, maxUsers int) (*domain.Room, error) {
	const op = "service.room.create"
	log := s.log.With(slog.String("op", op))

	capacity := domain.ClampMaxUsers(maxUsers, s.settings.DefaultMaxUsers, s.settings.MinUsers, s.settings.MaxUsers)

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		room := domain.NewRoom(capacity)
		err := s.rooms.Create(ctx, room, s.settings.TTL)
		if errors.Is(err, repository.ErrRoomExists) {
			log.Warn("room id collision, regenerating", slog.String("room_id", room.ID))
			continue
		}
		if err != nil {
			log.Error("failed to create room", sl.Err(err))
			return nil, wrapErr(op, err)
		}

		log.Info("room created",
			slog.String("room_id", room.ID),
			slog.Int("max_users", room.MaxUsers),
			slog.Duration("ttl", s.settings.TTL),
		)
		return room, nil
	}

	return nil, wrapErr(op, repository.ErrRoomExists)
}

func (s *RoomService) RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error) {
	const op = "service.room.info"

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return &RoomInfo{
		ConnectedCount: len(room.ConnectedTokens),
		MaxUsers:       room.MaxUsers,
	}, nil
}

// RemainingLifetime reports zero once the room has expired between
// admission and the TTL read.
func (s *RoomService) RemainingLifetime(ctx context.Context, auth Auth) (time.Duration, error) {
	const op = "service.room.ttl"
	if err := requireAuth(auth); err != nil {
		return 0, err
	}

	ttl, err := s.rooms.TTL(ctx, auth.RoomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr(op, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return ttl, nil
}

// DestroyRoom notifies listeners before any key is removed so they are
// still subscribed when the room goes away.
func (s *RoomService) DestroyRoom(ctx context.Context, auth Auth) error {
	const op = "service.room.destroy"
	log := s.log.With(slog.String("op", op), slog.String("room_id", auth.RoomID))

	if err := requireAuth(auth); err != nil {
		return err
	}

	if err := s.events.Channel(auth.RoomID).Emit(ctx, domain.RoomDestroyed{IsDestroyed: true}); err != nil {
		log.Error("failed to publish destroy event", sl.Err(err))
		return wrapErr(op, err)
	}

	if err := s.rooms.Delete(ctx, auth.RoomID); err != nil {
		log.Error("failed to delete room", sl.Err(err))
		return wrapErr(op, err)
	}

	log.Info("room destroyed")
	return nil
}
