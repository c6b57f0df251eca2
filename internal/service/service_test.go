package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/realtime"
	"github.com/immxrtalbeast/burnchat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *repository.InMemoryStore
	broker   *realtime.MemoryBroker
	gate     *Gate
	rooms    *RoomService
	messages *MessageService
	advance  func(time.Duration)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewInMemoryStoreWithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	broker := realtime.NewMemoryBroker(64, nil)
	t.Cleanup(func() { _ = broker.Close() })

	emitter := realtime.NewEmitter(broker)
	ttl := NewTTLSynchronizer(store, nil)

	return &fixture{
		store:    store,
		broker:   broker,
		gate:     NewGate(store, nil),
		rooms:    NewRoomService(store, emitter, DefaultRoomSettings(), nil),
		messages: NewMessageService(store, ttl, emitter, nil),
		advance: func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		},
	}
}

func (f *fixture) room(t *testing.T, maxUsers int) string {
	t.Helper()
	room, err := f.rooms.CreateRoom(context.Background(), maxUsers)
	require.NoError(t, err)
	return room.ID
}

func (f *fixture) admit(t *testing.T, roomID, token string) Auth {
	t.Helper()
	auth, err := f.gate.Admit(context.Background(), roomID, token)
	require.NoError(t, err)
	return auth
}

func (f *fixture) subscribe(t *testing.T, roomID string) realtime.Subscription {
	t.Helper()
	sub, err := f.broker.Subscribe(context.Background(), roomID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func nextEvent(t *testing.T, sub realtime.Subscription) domain.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return domain.Event{}
}

func assertNoEvent(t *testing.T, sub realtime.Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %s", ev.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoomService_CreateRoomClampsCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		requested int
		want      int
	}{
		{0, 5},
		{1, 2},
		{7, 7},
		{99, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("requested %d", tt.requested), func(t *testing.T) {
			room, err := f.rooms.CreateRoom(ctx, tt.requested)
			require.NoError(t, err)

			info, err := f.rooms.RoomInfo(ctx, room.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.MaxUsers)
			assert.Equal(t, 0, info.ConnectedCount)
		})
	}
}

func TestGate_CapacityScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)

	a1 := f.admit(t, roomID, "t1")
	assert.True(t, a1.IsNew)
	f.admit(t, roomID, "t2")

	_, err := f.gate.Admit(ctx, roomID, "t3")
	assert.ErrorIs(t, err, ErrRoomFull)

	again := f.admit(t, roomID, "t1")
	assert.False(t, again.IsNew)

	info, err := f.rooms.RoomInfo(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.ConnectedCount)
}

func TestGate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)

	_, err := f.gate.Admit(ctx, roomID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.gate.Admit(ctx, "", "t1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.gate.Admit(ctx, "missing", "t1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGate_ConcurrentAdmissionsStayWithinCapacity(t *testing.T) {
	f := newFixture(t)
	roomID := f.room(t, 3)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.gate.Admit(context.Background(), roomID, fmt.Sprintf("token-%d", i%10))
		}(i)
	}
	wg.Wait()

	info, err := f.rooms.RoomInfo(context.Background(), roomID)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.ConnectedCount, info.MaxUsers)
	assert.Equal(t, 3, info.ConnectedCount)
}

func TestServices_RequireAdmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	forged := Auth{RoomID: "room", Token: "t1"}

	_, err := f.messages.List(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, f.rooms.DestroyRoom(ctx, forged), ErrUnauthorized)
}

func TestMessageService_AppendAndListInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 3)
	alice := f.admit(t, roomID, "alice-token")
	bob := f.admit(t, roomID, "bob-token")
	sub := f.subscribe(t, roomID)

	for _, text := range []string{"M1", "M2", "M3"} {
		msg, err := f.messages.Append(ctx, alice, "alice", text)
		require.NoError(t, err)
		assert.Equal(t, "alice-token", msg.OwnerToken)

		ev := nextEvent(t, sub)
		require.Equal(t, domain.EventMessageCreated, ev.Name)
		created := ev.Payload.(domain.MessageCreated).Message
		assert.Equal(t, msg.ID, created.ID)
		assert.Empty(t, created.OwnerToken)
	}

	asAlice, err := f.messages.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, asAlice, 3)
	for i, text := range []string{"M1", "M2", "M3"} {
		assert.Equal(t, text, asAlice[i].Text)
		assert.Equal(t, "alice-token", asAlice[i].OwnerToken)
	}

	asBob, err := f.messages.List(ctx, bob)
	require.NoError(t, err)
	for _, m := range asBob {
		assert.Empty(t, m.OwnerToken)
	}
}

func TestMessageService_AppendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	tests := []struct {
		name   string
		sender string
		text   string
	}{
		{"empty sender", "", "hi"},
		{"long sender", strings.Repeat("a", 101), "hi"},
		{"empty text", "alice", ""},
		{"long text", "alice", strings.Repeat("é", 1001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Append(ctx, auth, tt.sender, tt.text)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := f.messages.Append(ctx, auth, "alice", strings.Repeat("é", 1000))
	assert.NoError(t, err)
}

func TestMessageService_ToggleReactionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	msg, err := f.messages.Append(ctx, auth, "alice", "hi")
	require.NoError(t, err)
	sub := f.subscribe(t, roomID)

	require.NoError(t, f.messages.ToggleReaction(ctx, auth, msg.ID, "👍", "bob"))
	ev := nextEvent(t, sub)
	assert.Equal(t, domain.NewEvent(domain.ReactionChanged{MessageID: msg.ID, Emoji: "👍", Username: "bob"}), ev)

	list, err := f.messages.List(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, []domain.Reaction{{Emoji: "👍", Users: []string{"bob"}}}, list[0].Reactions)

	require.NoError(t, f.messages.ToggleReaction(ctx, auth, msg.ID, "👍", "bob"))
	nextEvent(t, sub)

	list, err = f.messages.List(ctx, auth)
	require.NoError(t, err)
	assert.Empty(t, list[0].Reactions)

	err = f.messages.ToggleReaction(ctx, auth, "missing", "👍", "bob")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageService_MarkReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	msg, err := f.messages.Append(ctx, auth, "alice", "hi")
	require.NoError(t, err)
	sub := f.subscribe(t, roomID)

	require.NoError(t, f.messages.MarkRead(ctx, auth, msg.ID, "bob"))
	ev := nextEvent(t, sub)
	assert.Equal(t, domain.EventReadReceipt, ev.Name)

	require.NoError(t, f.messages.MarkRead(ctx, auth, msg.ID, "bob"))
	assertNoEvent(t, sub)

	list, err := f.messages.List(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, list[0].ReadBy)
}

func TestMessageService_ConcurrentMutationsAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")
	msg, err := f.messages.Append(ctx, auth, "alice", "hi")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.messages.MarkRead(ctx, auth, msg.ID, fmt.Sprintf("reader-%d", i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.messages.ToggleReaction(ctx, auth, msg.ID, "👍", fmt.Sprintf("fan-%d", i)))
		}(i)
	}
	wg.Wait()

	list, err := f.messages.List(ctx, auth)
	require.NoError(t, err)
	assert.Len(t, list[0].ReadBy, 10)
	require.Len(t, list[0].Reactions, 1)
	assert.Len(t, list[0].Reactions[0].Users, 10)
}

func TestMessageService_SetTypingOnlyFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")
	sub := f.subscribe(t, roomID)

	require.NoError(t, f.messages.SetTyping(ctx, auth, "alice", true))
	ev := nextEvent(t, sub)
	assert.Equal(t, domain.TypingStatus{Username: "alice", IsTyping: true}, ev.Payload)

	list, err := f.messages.List(ctx, auth)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRoomService_RemainingLifetimeIsAgeBased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	f.advance(5 * time.Minute)
	_, err := f.messages.Append(ctx, auth, "alice", "activity does not extend life")
	require.NoError(t, err)

	ttl, err := f.rooms.RemainingLifetime(ctx, auth)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, ttl)

	f.advance(15 * time.Minute)

	ttl, err = f.rooms.RemainingLifetime(ctx, auth)
	require.NoError(t, err)
	assert.Zero(t, ttl)

	_, err = f.gate.Admit(ctx, roomID, "t1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = f.rooms.RoomInfo(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestTTLSynchronizer_AlignsCompanionsAndDropsOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	_, err := f.messages.Append(ctx, auth, "alice", "hi")
	require.NoError(t, err)

	f.advance(20*time.Minute - time.Second)
	list, err := f.store.List(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	f.advance(time.Second)
	list, err = f.store.List(ctx, roomID)
	require.NoError(t, err)
	assert.Empty(t, list)

	synchronizer := NewTTLSynchronizer(f.store, nil)
	assert.ErrorIs(t, synchronizer.Sync(ctx, roomID), ErrRoomNotFound)
}

func TestRoomService_DestroyRoomPublishesThenDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")
	_, err := f.messages.Append(ctx, auth, "alice", "hi")
	require.NoError(t, err)

	sub := f.subscribe(t, roomID)

	require.NoError(t, f.rooms.DestroyRoom(ctx, auth))

	ev := nextEvent(t, sub)
	assert.Equal(t, domain.NewEvent(domain.RoomDestroyed{IsDestroyed: true}), ev)

	_, err = f.rooms.RoomInfo(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.gate.Admit(ctx, roomID, "t1")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	list, err := f.store.List(ctx, roomID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, domain.Event) error {
	return errors.New("connection refused")
}

func TestRoomService_DestroyRoomKeepsStateWhenPublishFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	rooms := NewRoomService(f.store, realtime.NewEmitter(failingPublisher{}), DefaultRoomSettings(), nil)

	err := rooms.DestroyRoom(ctx, auth)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = f.rooms.RoomInfo(ctx, roomID)
	assert.NoError(t, err)
}

func TestWrapErr(t *testing.T) {
	assert.ErrorIs(t, wrapErr("op", ErrRoomNotFound), ErrRoomNotFound)
	assert.NotErrorIs(t, wrapErr("op", ErrRoomNotFound), ErrStoreUnavailable)

	err := wrapErr("op", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageService_CommittedWritesSurvivePublishFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room(t, 2)
	auth := f.admit(t, roomID, "t1")

	messages := NewMessageService(f.store, NewTTLSynchronizer(f.store, nil), realtime.NewEmitter(failingPublisher{}), nil)

	msg, err := messages.Append(ctx, auth, "alice", "hi")
	require.NoError(t, err)

	require.NoError(t, messages.ToggleReaction(ctx, auth, msg.ID, "x", "bob"))
	require.NoError(t, messages.MarkRead(ctx, auth, msg.ID, "bob"))

	list, err := messages.List(ctx, auth)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []domain.Reaction{{Emoji: "x", Users: []string{"bob"}}}, list[0].Reactions)
	assert.Equal(t, []string{"bob"}, list[0].ReadBy)

	// Typing has nothing to commit, so the publish failure is the result.
	err = messages.SetTyping(ctx, auth, "bob", true)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
