package repositories

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const resetKeyPrefix = "reset:"

// ResetTokenStore tracks outstanding reset token ids in redis
type ResetTokenStore struct {
	client *redis.Client
}

func NewResetTokenStore(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func (s *ResetTokenStore) Remember(ctx context.Context, jti string, ttl time.Duration) error {
	return s.client.Set(ctx, resetKeyPrefix+jti, "1", ttl).Err()
}

// Consume deletes the id; DEL reports one removed key only to the first caller
func (s *ResetTokenStore) Consume(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Del(ctx, resetKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
