package database

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionTTL はWebSocketセッションの有効期限
const SessionTTL = 24 * time.Hour

var ErrSessionNotFound = errors.New("session not found or expired")

type sessionInfo struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// RedisSessionStore はセッションIDとユーザー名の対応をRedisに保存します。
type RedisSessionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSessionStore(rdb *redis.Client, logger *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: SessionTTL, logger: logger}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Create はセッションIDを発行して保存します。
func (s *RedisSessionStore) Create(ctx context.Context, username string) (string, error) {
	sessionID := uuid.New().String()

	// セッション情報をJSON形式でエンコード
	sessionInfoJSON, err := json.Marshal(sessionInfo{Username: username, CreatedAt: time.Now()})
	if err != nil {
		s.logger.Error("Error encoding session info", zap.Error(err))
		return "", err
	}

	if err := s.rdb.Set(ctx, sessionKey(sessionID), sessionInfoJSON, s.ttl).Err(); err != nil {
		s.logger.Error("Error storing session info in Redis", zap.Error(err))
		return "", err
	}
	return sessionID, nil
}

// Lookup はセッションIDからユーザー名を返します。
func (s *RedisSessionStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		s.logger.Error("Failed to retrieve session info", zap.Error(err))
		return "", err
	}

	var info sessionInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		s.logger.Error("Failed to decode session info", zap.Error(err))
		return "", err
	}
	if info.Username == "" {
		return "", ErrSessionNotFound
	}
	return info.Username, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

// Count は保存されているセッション数を返します。
func (s *RedisSessionStore) Count(ctx context.Context) (int, error) {
	var cursor uint64
	total := 0
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "session:*", 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// Sweep はRedisのTTLで失効するため何もしません。
func (s *RedisSessionStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// MemorySessionStore はRedisを使わない場合のセッション保存先
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	username  string
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := uuid.New().String()
	s.sessions[sessionID] = memorySession{username: username, expiresAt: s.now().Add(s.ttl)}
	return sessionID, nil
}

func (s *MemorySessionStore) Lookup(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !s.now().Before(sess.expiresAt) {
		return "", ErrSessionNotFound
	}
	return sess.username, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), nil
}

// Sweep は期限切れのセッションを削除し、削除件数を返します。
func (s *MemorySessionStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
