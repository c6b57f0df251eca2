package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reaction groups the display names that applied one emoji to a message.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

// Message is one entry of a room's log. Text is opaque and may be ciphertext.
type Message struct {
	ID         string     `json:"id"`
	Sender     string     `json:"sender"`
	Text       string     `json:"text"`
	Timestamp  int64      `json:"timestamp"`
	RoomID     string     `json:"roomId"`
	Reactions  []Reaction `json:"reactions"`
	ReadBy     []string   `json:"readBy"`
	OwnerToken string     `json:"token,omitempty"`
}

func NewMessage(roomID, sender, text, ownerToken string) *Message {
	return &Message{
		ID:         uuid.NewString(),
		Sender:     sender,
		Text:       text,
		Timestamp:  time.Now().UTC().UnixMilli(),
		RoomID:     roomID,
		Reactions:  []Reaction{},
		ReadBy:     []string{},
		OwnerToken: ownerToken,
	}
}

// ToggleReaction adds username to the emoji's reaction or removes it if
// already present. A reaction left without users is dropped.
func (m *Message) ToggleReaction(emoji, username string) {
	for i := range m.Reactions {
		r := &m.Reactions[i]
		if r.Emoji != emoji {
			continue
		}
		for j, u := range r.Users {
			if u == username {
				r.Users = append(r.Users[:j], r.Users[j+1:]...)
				if len(r.Users) == 0 {
					m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				}
				return
			}
		}
		r.Users = append(r.Users, username)
		return
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, Users: []string{username}})
}

// MarkRead records username in ReadBy. It returns false if it was already there.
func (m *Message) MarkRead(username string) bool {
	for _, u := range m.ReadBy {
		if u == username {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, username)
	return true
}

// ProjectFor returns a copy whose OwnerToken is kept only for its owner.
func (m Message) ProjectFor(token string) Message {
	if token == "" || m.OwnerToken != token {
		m.OwnerToken = ""
	}
	if m.Reactions == nil {
		m.Reactions = []Reaction{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
	return m
}

// Public strips the owner token entirely.
func (m Message) Public() Message {
	return m.ProjectFor("")
}
