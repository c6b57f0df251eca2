package service

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/realtime"
	"github.com/immxrtalbeast/burnchat/internal/repository"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
)

const (
	maxMessageTextLength = 1000
	maxSenderLength      = 100
	maxUsernameLength    = 100
	maxEmojiLength       = 32
)

type MessageService struct {
	messages repository.MessageRepository
	ttl      *TTLSynchronizer
	events   *realtime.Emitter
	locks    *roomLocks
	log      *slog.Logger
}

func NewMessageService(messages repository.MessageRepository, ttl *TTLSynchronizer, events *realtime.Emitter, log *slog.Logger) *MessageService {
	if log == nil {
		log = slog.Default()
	}
	return &MessageService{
		messages: messages,
		ttl:      ttl,
		events:   events,
		locks:    newRoomLocks(),
		log:      log,
	}
}

func (s *MessageService) Append(ctx context.Context, auth Auth, sender, text string) (*domain.Message, error) {
	const op = "service.message.append"
	log := s.log.With(slog.String("op", op), slog.String("room_id", auth.RoomID))

	if err := requireAuth(auth); err != nil {
		return nil, err
	}
	if err := validateMessage(sender, text); err != nil {
		return nil, err
	}

	msg := domain.NewMessage(auth.RoomID, sender, text, auth.Token)
	if err := s.messages.Append(ctx, auth.RoomID, msg); err != nil {
		log.Error("failed to append message", sl.Err(err))
		return nil, wrapErr(op, err)
	}

	if err := s.ttl.Sync(ctx, auth.RoomID); err != nil {
		return nil, err
	}

	s.notify(ctx, op, auth.RoomID, domain.MessageCreated{Message: msg.Public()})

	log.Debug("message appended", slog.String("message_id", msg.ID))
	projected := msg.ProjectFor(auth.Token)
	return &projected, nil
}

func (s *MessageService) List(ctx context.Context, auth Auth) ([]domain.Message, error) {
	const op = "service.message.list"

	if err := requireAuth(auth); err != nil {
		return nil, err
	}

	messages, err := s.messages.List(ctx, auth.RoomID)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	result := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		result = append(result, m.ProjectFor(auth.Token))
	}
	return result, nil
}

func (s *MessageService) ToggleReaction(ctx context.Context, auth Auth, messageID, emoji, username string) error {
	const op = "service.message.react"

	if err := requireAuth(auth); err != nil {
		return err
	}
	if messageID == "" {
		return validationErr("messageId is required")
	}
	if err := validateField("emoji", emoji, maxEmojiLength); err != nil {
		return err
	}
	if err := validateField("username", username, maxUsernameLength); err != nil {
		return err
	}

	changed, err := s.mutate(ctx, op, auth.RoomID, messageID, func(m *domain.Message) bool {
		m.ToggleReaction(emoji, username)
		return true
	})
	if err != nil || !changed {
		return err
	}

	s.notify(ctx, op, auth.RoomID, domain.ReactionChanged{
		MessageID: messageID,
		Emoji:     emoji,
		Username:  username,
	})
	return nil
}

// MarkRead is idempotent: a repeated receipt writes nothing and emits nothing.
func (s *MessageService) MarkRead(ctx context.Context, auth Auth, messageID, username string) error {
	const op = "service.message.read"

	if err := requireAuth(auth); err != nil {
		return err
	}
	if messageID == "" {
		return validationErr("messageId is required")
	}
	if err := validateField("username", username, maxUsernameLength); err != nil {
		return err
	}

	changed, err := s.mutate(ctx, op, auth.RoomID, messageID, func(m *domain.Message) bool {
		return m.MarkRead(username)
	})
	if err != nil || !changed {
		return err
	}

	s.notify(ctx, op, auth.RoomID, domain.ReadReceipt{
		MessageID: messageID,
		Username:  username,
	})
	return nil
}

func (s *MessageService) SetTyping(ctx context.Context, auth Auth, username string, isTyping bool) error {
	const op = "service.message.typing"

	if err := requireAuth(auth); err != nil {
		return err
	}
	if err := validateField("username", username, maxUsernameLength); err != nil {
		return err
	}

	return s.emit(ctx, op, auth.RoomID, domain.TypingStatus{
		Username: username,
		IsTyping: isTyping,
	})
}

func (s *MessageService) mutate(ctx context.Context, op, roomID, messageID string, fn func(*domain.Message) bool) (bool, error) {
	unlock := s.locks.lock(roomID)
	defer unlock()

	_, changed, err := s.messages.Update(ctx, roomID, messageID, fn)
	if err != nil {
		return false, wrapErr(op, err)
	}
	if !changed {
		return false, nil
	}

	if err := s.ttl.Sync(ctx, roomID); err != nil {
		return false, err
	}
	return true, nil
}

// notify publishes after a committed write. The write stands either way,
// so a failed publish is only logged.
func (s *MessageService) notify(ctx context.Context, op, roomID string, payload domain.EventPayload) {
	if err := s.events.Channel(roomID).Emit(ctx, payload); err != nil {
		s.log.Error("failed to publish event",
			slog.String("op", op),
			slog.String("room_id", roomID),
			slog.String("event", string(payload.EventName())),
			sl.Err(err),
		)
	}
}

func (s *MessageService) emit(ctx context.Context, op, roomID string, payload domain.EventPayload) error {
	if err := s.events.Channel(roomID).Emit(ctx, payload); err != nil {
		s.log.Error("failed to publish event",
			slog.String("op", op),
			slog.String("room_id", roomID),
			slog.String("event", string(payload.EventName())),
			sl.Err(err),
		)
		return wrapErr(op, err)
	}
	return nil
}

func validateMessage(sender, text string) error {
	if err := validateField("sender", sender, maxSenderLength); err != nil {
		return err
	}
	if text == "" {
		return validationErr("text cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxMessageTextLength {
		return validationErr("text is too long")
	}
	return nil
}

func validateField(name, value string, limit int) error {
	if value == "" {
		return validationErr(name + " is required")
	}
	if utf8.RuneCountInString(value) > limit {
		return validationErr(name + " is too long")
	}
	return nil
}
