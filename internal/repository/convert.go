package repository

import (
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/repository/model"
)

func toModelMeta(room *domain.Room) *model.RoomMeta {
	return &model.RoomMeta{
		MaxUsers:  room.MaxUsers,
		CreatedAt: room.CreatedAt.UTC().UnixMilli(),
	}
}

func toDomainRoom(id string, meta *model.RoomMeta, tokens []string) *domain.Room {
	maxUsers := meta.MaxUsers
	if maxUsers <= 0 {
		maxUsers = domain.DefaultMaxUsers
	}
	if tokens == nil {
		tokens = []string{}
	}
	return &domain.Room{
		ID:              id,
		ConnectedTokens: tokens,
		MaxUsers:        maxUsers,
		CreatedAt:       time.UnixMilli(meta.CreatedAt).UTC(),
	}
}

func toModelMessage(msg *domain.Message) *model.Message {
	reactions := make([]model.Reaction, 0, len(msg.Reactions))
	for _, r := range msg.Reactions {
		reactions = append(reactions, model.Reaction{
			Emoji: r.Emoji,
			Users: append([]string(nil), r.Users...),
		})
	}
	return &model.Message{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		RoomID:    msg.RoomID,
		Reactions: reactions,
		ReadBy:    append([]string(nil), msg.ReadBy...),
		Token:     msg.OwnerToken,
	}
}

func toDomainMessage(msg *model.Message) domain.Message {
	reactions := make([]domain.Reaction, 0, len(msg.Reactions))
	for _, r := range msg.Reactions {
		reactions = append(reactions, domain.Reaction{
			Emoji: r.Emoji,
			Users: append([]string{}, r.Users...),
		})
	}
	return domain.Message{
		ID:         msg.ID,
		Sender:     msg.Sender,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
		RoomID:     msg.RoomID,
		Reactions:  reactions,
		ReadBy:     append([]string{}, msg.ReadBy...),
		OwnerToken: msg.Token,
	}
}

func cloneMessage(msg domain.Message) domain.Message {
	return toDomainMessage(toModelMessage(&msg))
}
