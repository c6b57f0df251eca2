package domain

import (
	"encoding/json"
	"fmt"
)

type EventName string

const (
	EventMessageCreated  EventName = "message.created"
	EventReactionChanged EventName = "reaction.changed"
	EventReadReceipt     EventName = "read.receipt"
	EventTypingStatus    EventName = "typing.status"
	EventRoomDestroyed   EventName = "room.destroyed"
)

// EventPayload is implemented only by the payload types below,
// so an Event can never carry a name that disagrees with its data.
type EventPayload interface {
	EventName() EventName
}

type MessageCreated struct {
	Message Message
}

type ReactionChanged struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Username  string `json:"username"`
}

type ReadReceipt struct {
	MessageID string `json:"messageId"`
	Username  string `json:"username"`
}

type TypingStatus struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type RoomDestroyed struct {
	IsDestroyed bool `json:"isDestroyed"`
}

func (MessageCreated) EventName() EventName  { return EventMessageCreated }
func (ReactionChanged) EventName() EventName { return EventReactionChanged }
func (ReadReceipt) EventName() EventName     { return EventReadReceipt }
func (TypingStatus) EventName() EventName    { return EventTypingStatus }
func (RoomDestroyed) EventName() EventName   { return EventRoomDestroyed }

// Event is a room-scoped notification as it travels over the fanout channel.
type Event struct {
	Name    EventName
	Payload EventPayload
}

func NewEvent(payload EventPayload) Event {
	return Event{Name: payload.EventName(), Payload: payload}
}

type wireEvent struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	var data any = e.Payload
	if mc, ok := e.Payload.(MessageCreated); ok {
		data = mc.Message
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Event: e.Name, Data: raw})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var (
		payload EventPayload
		err     error
	)
	switch w.Event {
	case EventMessageCreated:
		var m Message
		err = json.Unmarshal(w.Data, &m)
		payload = MessageCreated{Message: m}
	case EventReactionChanged:
		var p ReactionChanged
		err = json.Unmarshal(w.Data, &p)
		payload = p
	case EventReadReceipt:
		var p ReadReceipt
		err = json.Unmarshal(w.Data, &p)
		payload = p
	case EventTypingStatus:
		var p TypingStatus
		err = json.Unmarshal(w.Data, &p)
		payload = p
	case EventRoomDestroyed:
		var p RoomDestroyed
		err = json.Unmarshal(w.Data, &p)
		payload = p
	default:
		return fmt.Errorf("unknown event %q", w.Event)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", w.Event, err)
	}

	e.Name = w.Event
	e.Payload = payload
	return nil
}
