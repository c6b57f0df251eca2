package model

// RoomMeta is the hash stored under meta:<roomID>.
type RoomMeta struct {
	MaxUsers  int   `redis:"maxUsers"`
	CreatedAt int64 `redis:"createdAt"`
}

type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

// Message is one JSON element of the messages:<roomID> list.
// Token is the sender's admission token and never leaves the server unprojected.
type Message struct {
	ID        string     `json:"id"`
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp int64      `json:"timestamp"`
	RoomID    string     `json:"roomId"`
	Reactions []Reaction `json:"reactions,omitempty"`
	ReadBy    []string   `json:"readBy,omitempty"`
	Token     string     `json:"token,omitempty"`
}
