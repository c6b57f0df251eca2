package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSON(t *testing.T) {
	ev := NewEvent(ReactionChanged{MessageID: "m1", Emoji: "👍", Username: "bob"})

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"reaction.changed","data":{"messageId":"m1","emoji":"👍","username":"bob"}}`, string(b))

	var decoded Event
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestEvent_MessageCreatedCarriesMessageAsData(t *testing.T) {
	msg := NewMessage("room", "alice", "hi", "")
	ev := NewEvent(MessageCreated{Message: *msg})

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw struct {
		Event string  `json:"event"`
		Data  Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "message.created", raw.Event)
	assert.Equal(t, msg.ID, raw.Data.ID)
	assert.NotContains(t, string(b), `"token"`)
}

func TestEvent_UnknownName(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"event":"chat.bogus","data":{}}`), &ev)
	assert.Error(t, err)
}
