package domain

import (
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

const roomIDLength = 21

const (
	DefaultMaxUsers = 5
	MinMaxUsers     = 2
	MaxMaxUsers     = 10
)

var newRoomID = mustIDGenerator(roomIDLength)

// Room is the metadata of an ephemeral chat room.
// ConnectedTokens only ever grows while the room is alive.
type Room struct {
	ID              string
	ConnectedTokens []string
	MaxUsers        int
	CreatedAt       time.Time
}

// NewRoom constructs a room with a freshly generated identifier.
func NewRoom(maxUsers int) *Room {
	return &Room{
		ID:              newRoomID(),
		ConnectedTokens: []string{},
		MaxUsers:        maxUsers,
		CreatedAt:       time.Now().UTC(),
	}
}

// HasToken reports whether the token was already admitted.
func (r *Room) HasToken(token string) bool {
	for _, t := range r.ConnectedTokens {
		if t == token {
			return true
		}
	}
	return false
}

// IsFull reports whether no new token can be admitted.
func (r *Room) IsFull() bool {
	return len(r.ConnectedTokens) >= r.MaxUsers
}

// ClampMaxUsers resolves a requested capacity into the allowed range.
// Zero means "use the default".
func ClampMaxUsers(requested, def, lo, hi int) int {
	if requested == 0 {
		requested = def
	}
	if requested < lo {
		return lo
	}
	if requested > hi {
		return hi
	}
	return requested
}

func mustIDGenerator(length int) func() string {
	gen, err := nanoid.Standard(length)
	if err != nil {
		panic("nanoid generator: " + err.Error())
	}
	return gen
}
