package repository

import (
	"context"
	"errors"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrMessageNotFound = errors.New("message not found")
	ErrUpdateConflict  = errors.New("message log changed concurrently")
)

// Admission is the outcome of presenting a token to a room.
type Admission int

const (
	AdmissionRejected Admission = iota // capacity exhausted, token unknown
	AdmissionExisting                  // token already a member
	AdmissionNew                       // token took a free slot
)

func (a Admission) Admitted() bool {
	return a == AdmissionExisting || a == AdmissionNew
}

type RoomRepository interface {
	// Create stores the room metadata with its lifetime. Returns ErrRoomExists on id collision.
	Create(ctx context.Context, room *domain.Room, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Room, error)
	// Admit atomically performs first-touch admission of token.
	Admit(ctx context.Context, id string, token string) (Admission, error)
	// TTL returns the remaining lifetime of the metadata key.
	TTL(ctx context.Context, id string) (time.Duration, error)
	// ExpireCompanions aligns every companion key with ttl; ttl <= 0 deletes them.
	ExpireCompanions(ctx context.Context, id string, ttl time.Duration) error
	// Delete removes metadata, members and the message log together.
	Delete(ctx context.Context, id string) error
}

type MessageRepository interface {
	// Append pushes msg to the tail of the room log. Returns ErrRoomNotFound if the room is gone.
	Append(ctx context.Context, roomID string, msg *domain.Message) error
	List(ctx context.Context, roomID string) ([]domain.Message, error)
	// Update runs mutate against the message with messageID and writes it back
	// to the same position when mutate reports a change.
	Update(ctx context.Context, roomID, messageID string, mutate func(*domain.Message) bool) (*domain.Message, bool, error)
}

func metaKey(roomID string) string     { return "meta:" + roomID }
func membersKey(roomID string) string  { return "members:" + roomID }
func messagesKey(roomID string) string { return "messages:" + roomID }

func companionKeys(roomID string) []string {
	return []string{membersKey(roomID), messagesKey(roomID)}
}
