package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

// Session is the authenticated caller as seen by handlers.
type Session struct {
	ID        string `json:"-"`
	AccountID int64  `json:"uid"`
	Username  string `json:"username"`
}

type SessionStore interface {
	Create(ctx context.Context, accountID int64, username string) (Session, error)
	// Get returns ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// RedisSessions keeps sessions as JSON under session:<id> with a TTL.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func (s *RedisSessions) Create(ctx context.Context, accountID int64, username string) (Session, error) {
	sess := Session{ID: uuid.NewString(), AccountID: accountID, Username: username}
	b, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+sess.ID, b, s.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("redis set session: %w", err)
	}
	return sess, nil
}

func (s *RedisSessions) Get(ctx context.Context, id string) (Session, error) {
	b, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	sess.ID = id
	return sess, nil
}

func (s *RedisSessions) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+id).Err()
}

// MemorySessions is the single-process fallback used when no Redis address is configured.
type MemorySessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]memSession
	now   func() time.Time
}

type memSession struct {
	sess    Session
	expires time.Time
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{ttl: ttl, items: make(map[string]memSession), now: time.Now}
}

func (s *MemorySessions) Create(_ context.Context, accountID int64, username string) (Session, error) {
	sess := Session{ID: uuid.NewString(), AccountID: accountID, Username: username}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.ID] = memSession{sess: sess, expires: s.now().Add(s.ttl)}
	return sess, nil
}

func (s *MemorySessions) Get(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.now().Before(it.expires) {
		delete(s.items, id)
		return Session{}, ErrSessionNotFound
	}
	return it.sess, nil
}

func (s *MemorySessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
