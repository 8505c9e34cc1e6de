package idempotency

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInFlight  = errors.New("request with this idempotency key is still being processed")
	ErrKeyReused = errors.New("idempotency key was already used with a different request body")
)

// StoredResponse is the replayable part of a completed response.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Matches reports whether a retry with the given body fingerprint may replay r.
// Entries saved without a fingerprint match anything.
func (r *StoredResponse) Matches(fingerprint string) bool {
	return r.Fingerprint == "" || r.Fingerprint == fingerprint
}

type Store interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Acquire(ctx context.Context, key string) error
	Save(ctx context.Context, key string, res StoredResponse) error
	Release(ctx context.Context, key string) error
}

type redisStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl, lockTTL: 30 * time.Second}
}

// Key builds the cache key for a request scoped to an organization.
func Key(orgID, method, path, idempKey string) string {
	return fmt.Sprintf("idemp:%s:%s:%s:%s", orgID, method, path, idempKey)
}

// Fingerprint hashes a request body so a key replayed with a different payload can be told apart.
func Fingerprint(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Get returns nil, nil when nothing is cached for key.
func (s *redisStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var res StoredResponse
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency entry: %w", err)
	}
	return &res, nil
}

// Acquire takes the short-lived processing lock for key.
func (s *redisStore) Acquire(ctx context.Context, key string) error {
	ok, err := s.rdb.SetNX(ctx, key+":lock", "locked", s.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire idempotency lock: %w", err)
	}
	if !ok {
		return ErrInFlight
	}
	return nil
}

func (s *redisStore) Save(ctx context.Context, key string, res StoredResponse) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency entry: %w", err)
	}
	if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency entry: %w", err)
	}
	return nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key+":lock").Err(); err != nil {
		return fmt.Errorf("failed to release idempotency lock: %w", err)
	}
	return nil
}
