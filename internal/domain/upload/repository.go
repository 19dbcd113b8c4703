package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long an idle session is kept
const DefaultSessionTTL = 24 * time.Hour

// Cache keeps form fields and staged uploads per session until invalidated.
type Cache interface {
	SaveForm(ctx context.Context, session string, form Form) error
	// Form returns the zero Form for unknown sessions.
	Form(ctx context.Context, session string) (Form, error)
	// Stage replaces the uploads of one category.
	Stage(ctx context.Context, session, category string, uploads []Upload) error
	Uploads(ctx context.Context, session, category string) ([]Upload, error)
	Counts(ctx context.Context, session string) (map[string]int, error)
	Invalidate(ctx context.Context, session string) error
	Close() error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a Redis-backed cache. Every write refreshes the
// session TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string) Cache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if prefix == "" {
		prefix = "zeladoria:session:"
	}
	return &redisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *redisCache) indexKey(session string) string {
	return c.prefix + session + ":keys"
}

func (c *redisCache) formKey(session string) string {
	return c.prefix + session + ":form"
}

func (c *redisCache) uploadsPrefix(session string) string {
	return c.prefix + session + ":uploads:"
}

func (c *redisCache) uploadsKey(session, category string) string {
	return c.uploadsPrefix(session) + category
}

func (c *redisCache) write(ctx context.Context, session, key string, value any) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	members, err := c.members(ctx, session)
	if err != nil {
		return err
	}

	index := c.indexKey(session)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		pipe.SAdd(ctx, index, key)
		c.touch(ctx, pipe, index, members)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) members(ctx context.Context, session string) ([]string, error) {
	keys, err := c.client.SMembers(ctx, c.indexKey(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session keys: %w", err)
	}
	return keys, nil
}

// touch resets the TTL of the index and every key it lists, so the form and
// the staged photos of a session expire together.
func (c *redisCache) touch(ctx context.Context, pipe redis.Pipeliner, index string, members []string) {
	for _, key := range members {
		pipe.Expire(ctx, key, c.ttl)
	}
	pipe.Expire(ctx, index, c.ttl)
}

func (c *redisCache) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *redisCache) SaveForm(ctx context.Context, session string, form Form) error {
	return c.write(ctx, session, c.formKey(session), form)
}

func (c *redisCache) Form(ctx context.Context, session string) (Form, error) {
	var form Form
	if _, err := c.read(ctx, c.formKey(session), &form); err != nil {
		return Form{}, err
	}
	return form, nil
}

func (c *redisCache) Stage(ctx context.Context, session, category string, uploads []Upload) error {
	key := c.uploadsKey(session, category)
	if len(uploads) == 0 {
		members, err := c.members(ctx, session)
		if err != nil {
			return err
		}
		index := c.indexKey(session)
		_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, index, key)
			c.touch(ctx, pipe, index, members)
			return nil
		})
		return err
	}
	return c.write(ctx, session, key, uploads)
}

func (c *redisCache) Uploads(ctx context.Context, session, category string) ([]Upload, error) {
	var uploads []Upload
	if _, err := c.read(ctx, c.uploadsKey(session, category), &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (c *redisCache) Counts(ctx context.Context, session string) (map[string]int, error) {
	keys, err := c.members(ctx, session)
	if err != nil {
		return nil, err
	}

	prefix := c.uploadsPrefix(session)
	counts := make(map[string]int)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		var uploads []Upload
		found, err := c.read(ctx, key, &uploads)
		if err != nil {
			return nil, err
		}
		if found && len(uploads) > 0 {
			counts[strings.TrimPrefix(key, prefix)] = len(uploads)
		}
	}
	return counts, nil
}

func (c *redisCache) Invalidate(ctx context.Context, session string) error {
	keys, err := c.members(ctx, session)
	if err != nil {
		return err
	}
	keys = append(keys, c.indexKey(session))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
