package repository

import (
	"context"
	"sync"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/repository/model"
)

type memoryItem struct {
	value     any
	expiresAt time.Time
}

// InMemoryStore keeps the same key layout and expiry rules as the Redis
// store in a single process. Expired keys are dropped lazily on access.
type InMemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryItem
	now   func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return NewInMemoryStoreWithClock(time.Now)
}

func NewInMemoryStoreWithClock(now func() time.Time) *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]*memoryItem),
		now:   now,
	}
}

// get must be called with mu held.
func (s *InMemoryStore) get(key string) (*memoryItem, bool) {
	item, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		return nil, false
	}
	return item, true
}

func (s *InMemoryStore) ttlOf(key string) time.Duration {
	item, ok := s.get(key)
	if !ok || item.expiresAt.IsZero() {
		return 0
	}
	return item.expiresAt.Sub(s.now())
}

func (s *InMemoryStore) Create(ctx context.Context, room *domain.Room, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := metaKey(room.ID)
	if _, ok := s.get(key); ok {
		return ErrRoomExists
	}

	s.items[key] = &memoryItem{value: toModelMeta(room), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.get(metaKey(id))
	if !ok {
		return nil, ErrRoomNotFound
	}

	var tokens []string
	if members, ok := s.get(membersKey(id)); ok {
		tokens = append(tokens, members.value.([]string)...)
	}

	return toDomainRoom(id, meta.value.(*model.RoomMeta), tokens), nil
}

func (s *InMemoryStore) Admit(ctx context.Context, id string, token string) (Admission, error) {
	if err := ctx.Err(); err != nil {
		return AdmissionRejected, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.get(metaKey(id))
	if !ok {
		return AdmissionRejected, ErrRoomNotFound
	}

	var tokens []string
	if members, ok := s.get(membersKey(id)); ok {
		tokens = members.value.([]string)
	}
	for _, t := range tokens {
		if t == token {
			return AdmissionExisting, nil
		}
	}
	if len(tokens) >= meta.value.(*model.RoomMeta).MaxUsers {
		return AdmissionRejected, nil
	}

	s.items[membersKey(id)] = &memoryItem{
		value:     append(append([]string(nil), tokens...), token),
		expiresAt: meta.expiresAt,
	}
	return AdmissionNew, nil
}

func (s *InMemoryStore) TTL(ctx context.Context, id string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.get(metaKey(id)); !ok {
		return 0, ErrRoomNotFound
	}
	return s.ttlOf(metaKey(id)), nil
}

func (s *InMemoryStore) ExpireCompanions(ctx context.Context, id string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range companionKeys(id) {
		item, ok := s.get(key)
		if !ok {
			continue
		}
		if ttl <= 0 {
			delete(s.items, key)
			continue
		}
		item.expiresAt = s.now().Add(ttl)
	}
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, metaKey(id))
	for _, key := range companionKeys(id) {
		delete(s.items, key)
	}
	return nil
}

func (s *InMemoryStore) Append(ctx context.Context, roomID string, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.get(metaKey(roomID))
	if !ok {
		return ErrRoomNotFound
	}

	key := messagesKey(roomID)
	item, ok := s.get(key)
	if !ok {
		item = &memoryItem{value: []domain.Message{}}
		s.items[key] = item
	}
	item.value = append(item.value.([]domain.Message), cloneMessage(*msg))
	item.expiresAt = meta.expiresAt
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, roomID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.get(messagesKey(roomID))
	if !ok {
		return []domain.Message{}, nil
	}

	stored := item.value.([]domain.Message)
	result := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		result = append(result, cloneMessage(m))
	}
	return result, nil
}

func (s *InMemoryStore) Update(ctx context.Context, roomID, messageID string, mutate func(*domain.Message) bool) (*domain.Message, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.get(messagesKey(roomID))
	if !ok {
		return nil, false, ErrMessageNotFound
	}

	stored := item.value.([]domain.Message)
	for i := range stored {
		if stored[i].ID != messageID {
			continue
		}
		msg := cloneMessage(stored[i])
		if !mutate(&msg) {
			return &msg, false, nil
		}
		stored[i] = cloneMessage(msg)
		return &msg, true, nil
	}
	return nil, false, ErrMessageNotFound
}

func (s *InMemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
