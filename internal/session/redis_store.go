package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisRecord struct {
	Credential string    `json:"credential"`
	CreatedAt  time.Time `json:"created_at"`
}

// RedisStore keeps sessions in Redis under session:<id> with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(id string) string {
	return "session:" + id
}

func (s *RedisStore) Create(ctx context.Context, credential string) (Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Session{}, ErrEmptyCredential
	}

	now := s.now().UTC()
	sess := Session{
		ID:         uuid.NewString(),
		Credential: credential,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	payload, err := json.Marshal(redisRecord{Credential: credential, CreatedAt: now})
	if err != nil {
		return Session{}, err
	}
	if err := s.client.Set(ctx, s.key(sess.ID), payload, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrSessionNotFound
	}

	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var record redisRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}

	sess := Session{ID: id, Credential: record.Credential, CreatedAt: record.CreatedAt}
	if ttl, err := s.client.TTL(ctx, s.key(id)).Result(); err == nil && ttl > 0 {
		sess.ExpiresAt = s.now().UTC().Add(ttl)
	}
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
