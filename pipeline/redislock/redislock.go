// Package redislock provides a Redis-backed alternative to pipeline.DocumentLocker
// (SETNX-based, lower-latency than the generic optimistic lock document) plus the
// cross-process Pub/Sub fan-out mcpsession.Store uses whenever ASHFOX_REDIS_URL is set.
// Adapted from eve.evalgo.org's db/repository/redis.go (AcquireLock/ReleaseLock/
// Publish/Subscribe), narrowed from a general-purpose cache/lock/counter repository down
// to the two concerns this gateway actually exercises.
package redislock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a go-redis client for both the Locker and Publisher roles.
type Client struct {
	rdb *redis.Client
}

// Open connects to url (a redis:// URL) and verifies the connection.
func Open(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.rdb.Close() }

const lockKeyPrefix = "ashfox:pipeline:lock:"

// Acquire implements pipeline.Locker via SET NX EX, polling every 50ms until timeout.
func (c *Client) Acquire(ctx context.Context, ownerID string, ttl, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := c.rdb.SetNX(ctx, lockKeyPrefix+"global", ownerID, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("redislock: acquire timed out after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Release deletes the lock key only if still owned by ownerID, via a Lua compare-and-
// delete to avoid a race between the owner check and the delete.
func (c *Client) Release(ctx context.Context, ownerID string) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
	return script.Run(ctx, c.rdb, []string{lockKeyPrefix + "global"}, ownerID).Err()
}

// Publish implements mcpsession.Publisher.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.rdb.Publish(ctx, channel, data).Err()
}

// Subscribe implements mcpsession.Publisher, forwarding decoded JSON payloads until ctx
// is cancelled.
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan interface{}, error) {
	pubsub := c.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan interface{})
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var data interface{}
				if err := json.Unmarshal([]byte(msg.Payload), &data); err == nil {
					out <- data
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
