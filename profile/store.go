// Package profile stores per-user assistant preferences in Redis.
package profile

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dex-assistant-service:user:profile:"

type Store struct {
	Redis *redis.Client
}

func NewStore(r *redis.Client) *Store {
	return &Store{Redis: r}
}

// Get loads a user's profile. Missing profiles return nil so callers can fall
// back to defaults.
func (s *Store) Get(ctx context.Context, userID string) (*UserProfile, error) {
	data, err := s.Redis.Get(ctx, keyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p UserProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save persists a profile without expiration.
func (s *Store) Save(ctx context.Context, p *UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, keyPrefix+p.UserID, data, 0).Err()
}

// Delete removes a profile.
func (s *Store) Delete(ctx context.Context, userID string) error {
	return s.Redis.Del(ctx, keyPrefix+userID).Err()
}
