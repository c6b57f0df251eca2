package service

import (
	"context"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
)

type RoomInteractor interface {
	CreateRoom(ctx context.Context, maxUsers int) (*domain.Room, error)
	RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error)
	RemainingLifetime(ctx context.Context, auth Auth) (time.Duration, error)
	DestroyRoom(ctx context.Context, auth Auth) error
}

type MessageInteractor interface {
	Append(ctx context.Context, auth Auth, sender, text string) (*domain.Message, error)
	List(ctx context.Context, auth Auth) ([]domain.Message, error)
	ToggleReaction(ctx context.Context, auth Auth, messageID, emoji, username string) error
	MarkRead(ctx context.Context, auth Auth, messageID, username string) error
	SetTyping(ctx context.Context, auth Auth, username string, isTyping bool) error
}

type Admitter interface {
	Admit(ctx context.Context, roomID, token string) (Auth, error)
}
