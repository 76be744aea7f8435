package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps single-use OAuth state parameters in Redis so the
// callback can verify that an authorization flow was actually started by
// this service. States expire after TTL and are consumed exactly once.
//
// A nil Redis client disables verification: Save becomes a no-op and
// Consume accepts everything. This mirrors how caching and rate limiting
// degrade when Redis is unreachable at startup.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStateStore(rdb *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{rdb: rdb, ttl: ttl}
}

func (s *StateStore) key(state string) string { return "oauth:state:" + state }

// Save records a freshly minted state parameter.
func (s *StateStore) Save(ctx context.Context, state string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Set(ctx, s.key(state), "1", s.ttl).Err()
}

// Consume atomically removes the state and reports whether it existed.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}
	res, err := s.rdb.GetDel(ctx, s.key(state)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res != "", nil
}
