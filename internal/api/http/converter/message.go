package converter

import "github.com/immxrtalbeast/burnchat/internal/domain"

type ReactionResponse struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

type MessageResponse struct {
	ID        string             `json:"id"`
	Sender    string             `json:"sender"`
	Text      string             `json:"text"`
	Timestamp int64              `json:"timestamp"`
	RoomID    string             `json:"roomId"`
	Reactions []ReactionResponse `json:"reactions"`
	ReadBy    []string           `json:"readBy"`
	Token     string             `json:"token,omitempty"`
}

type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// MessageToApi expects a message already projected for the caller.
func MessageToApi(m *domain.Message) *MessageResponse {
	reactions := make([]ReactionResponse, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		reactions = append(reactions, ReactionResponse{
			Emoji: r.Emoji,
			Users: append([]string{}, r.Users...),
		})
	}
	readBy := append([]string{}, m.ReadBy...)

	return &MessageResponse{
		ID:        m.ID,
		Sender:    m.Sender,
		Text:      m.Text,
		Timestamp: m.Timestamp,
		RoomID:    m.RoomID,
		Reactions: reactions,
		ReadBy:    readBy,
		Token:     m.OwnerToken,
	}
}

func MessagesToApi(messages []domain.Message) *MessagesResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, *MessageToApi(&messages[i]))
	}
	return &MessagesResponse{Messages: out}
}
