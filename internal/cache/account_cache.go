package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"myapp-api/internal/model"
)

// tombstone marks an invalidated email. It blocks Set until the ttl runs out
// so a resolver holding a snapshot read before the invalidation cannot put it
// back.
const tombstone = "-"

// AccountCache stores resolved accounts as JSON under their email. The
// password hash is never serialized.
type AccountCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAccountCache(client *redisv9.Client, ttl time.Duration) *AccountCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &AccountCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *AccountCache) Get(ctx context.Context, email string) (*model.User, bool, error) {
	raw, err := c.client.Get(ctx, c.key(email)).Result()
	if err == redisv9.Nil || raw == tombstone {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get account failed: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached account failed: %w", err)
	}
	return &user, true, nil
}

// Set stores user only when nothing is held for its email, tombstones
// included. It reports whether the entry was written.
func (c *AccountCache) Set(ctx context.Context, user *model.User) (bool, error) {
	payload, err := json.Marshal(user)
	if err != nil {
		return false, fmt.Errorf("marshal account cache failed: %w", err)
	}
	stored, err := c.client.SetNX(ctx, c.key(user.Email), payload, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis set account failed: %w", err)
	}
	return stored, nil
}

// Invalidate replaces the entries for emails with tombstones.
func (c *AccountCache) Invalidate(ctx context.Context, emails ...string) error {
	if len(emails) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, email := range emails {
		pipe.Set(ctx, c.key(email), tombstone, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate account failed: %w", err)
	}
	return nil
}

func (c *AccountCache) key(email string) string {
	return "account:email:" + email
}
