package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/repository/model"
	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 8

var createScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('HSET', KEYS[1], 'maxUsers', ARGV[1], 'createdAt', ARGV[2])
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
	return 1
`)

// Returns -1 when the room is gone, otherwise an Admission value.
var admitScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1
	end
	if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
		return 1
	end
	local max = tonumber(redis.call('HGET', KEYS[1], 'maxUsers'))
	if redis.call('SCARD', KEYS[2]) >= max then
		return 0
	end
	redis.call('SADD', KEYS[2], ARGV[1])
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[2], ttl)
	end
	return 2
`)

var appendScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1
	end
	local n = redis.call('RPUSH', KEYS[2], ARGV[1])
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[2], ttl)
	end
	return n
`)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Create(ctx context.Context, room *domain.Room, ttl time.Duration) error {
	if room == nil {
		return errors.New("room is nil")
	}

	meta := toModelMeta(room)
	created, err := createScript.Run(ctx, r.client, []string{metaKey(room.ID)},
		meta.MaxUsers,
		meta.CreatedAt,
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if created == 0 {
		return ErrRoomExists
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*domain.Room, error) {
	var (
		metaCmd    *redis.MapStringStringCmd
		membersCmd *redis.StringSliceCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, metaKey(id))
		membersCmd = pipe.SMembers(ctx, membersKey(id))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}

	if len(metaCmd.Val()) == 0 {
		return nil, ErrRoomNotFound
	}

	var meta model.RoomMeta
	if err := metaCmd.Scan(&meta); err != nil {
		return nil, fmt.Errorf("decode room meta: %w", err)
	}

	return toDomainRoom(id, &meta, membersCmd.Val()), nil
}

func (r *RedisStore) Admit(ctx context.Context, id string, token string) (Admission, error) {
	res, err := admitScript.Run(ctx, r.client, []string{metaKey(id), membersKey(id)}, token).Int()
	if err != nil {
		return AdmissionRejected, fmt.Errorf("admit token: %w", err)
	}
	if res < 0 {
		return AdmissionRejected, ErrRoomNotFound
	}
	return Admission(res), nil
}

func (r *RedisStore) TTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, metaKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("room ttl: %w", err)
	}
	switch {
	case ttl == -2:
		return 0, ErrRoomNotFound
	case ttl < 0:
		return 0, nil
	}
	return ttl, nil
}

func (r *RedisStore) ExpireCompanions(ctx context.Context, id string, ttl time.Duration) error {
	keys := companionKeys(id)
	if ttl <= 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("drop companions: %w", err)
		}
		return nil
	}

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("expire companions: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	keys := append([]string{metaKey(id)}, companionKeys(id)...)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (r *RedisStore) Append(ctx context.Context, roomID string, msg *domain.Message) error {
	if msg == nil {
		return errors.New("message is nil")
	}

	data, err := json.Marshal(toModelMessage(msg))
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	res, err := appendScript.Run(ctx, r.client, []string{metaKey(roomID), messagesKey(roomID)}, data).Int()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if res < 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, roomID string) ([]domain.Message, error) {
	raw, err := r.client.LRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return decodeMessages(raw)
}

// Update is an optimistic read-modify-write: the log is watched, the target
// entry rewritten with LSET inside MULTI, and the whole cycle retried if
// another writer touched the list in between.
func (r *RedisStore) Update(ctx context.Context, roomID, messageID string, mutate func(*domain.Message) bool) (*domain.Message, bool, error) {
	key := messagesKey(roomID)

	var (
		result  *domain.Message
		changed bool
	)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		messages, err := decodeMessages(raw)
		if err != nil {
			return err
		}

		idx := -1
		for i := range messages {
			if messages[i].ID == messageID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrMessageNotFound
		}

		msg := messages[idx]
		result, changed = &msg, mutate(&msg)
		if !changed {
			return nil
		}

		data, err := json.Marshal(toModelMessage(&msg))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, key, int64(idx), data)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, changed, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrMessageNotFound):
			return nil, false, err
		default:
			return nil, false, fmt.Errorf("update message: %w", err)
		}
	}
	return nil, false, ErrUpdateConflict
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeMessages(raw []string) ([]domain.Message, error) {
	result := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var m model.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		result = append(result, toDomainMessage(&m))
	}
	return result, nil
}
