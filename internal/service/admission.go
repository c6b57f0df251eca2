package service

import (
	"context"
	"log/slog"

	"github.com/immxrtalbeast/burnchat/internal/repository"
)

// Auth is proof that a token passed the admission gate for a room.
// Only Gate.Admit produces one.
type Auth struct {
	RoomID string
	Token  string
	IsNew  bool

	admitted bool
}

func (a Auth) Valid() bool {
	return a.admitted && a.RoomID != "" && a.Token != ""
}

// Gate implements first-touch admission: a token unknown to a room that
// still has capacity becomes a permanent member the first time it is shown.
type Gate struct {
	rooms repository.RoomRepository
	log   *slog.Logger
}

func NewGate(rooms repository.RoomRepository, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{rooms: rooms, log: log}
}

func (g *Gate) Admit(ctx context.Context, roomID, token string) (Auth, error) {
	const op = "service.admission.admit"

	if roomID == "" || token == "" {
		return Auth{}, ErrUnauthorized
	}

	res, err := g.rooms.Admit(ctx, roomID, token)
	if err != nil {
		return Auth{}, wrapErr(op, err)
	}

	switch res {
	case repository.AdmissionNew:
		g.log.Info("token admitted",
			slog.String("op", op),
			slog.String("room_id", roomID),
		)
	case repository.AdmissionRejected:
		g.log.Debug("room is full", slog.String("op", op), slog.String("room_id", roomID))
		return Auth{}, ErrRoomFull
	}

	return Auth{
		RoomID:   roomID,
		Token:    token,
		IsNew:    res == repository.AdmissionNew,
		admitted: true,
	}, nil
}

func requireAuth(auth Auth) error {
	if !auth.Valid() {
		return ErrUnauthorized
	}
	return nil
}
