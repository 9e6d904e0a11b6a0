package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"

	"gumdrop/internal/notify"
	"gumdrop/internal/observability/metrics"
)

// releaseLockScript deletes the lock only if it still holds the caller's token.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

// ErrLockNotHeld means the lock expired or was taken over before release.
var ErrLockNotHeld = errors.New("close lock not held")

// Client wraps go-redis and exposes helpers for drop keys and Lua execution.
type Client struct {
	rdb           *goRedis.Client
	releaseScript *goRedis.Script
}

// New creates a Redis client and verifies connectivity.
func New(addr string) (*Client, error) {
	rdb := goRedis.NewClient(&goRedis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{
		rdb:           rdb,
		releaseScript: goRedis.NewScript(releaseLockScript),
	}, nil
}

// Close shuts down the underlying Redis client.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireCloseLock takes the per-drop close lock. ok is false when another close holds it.
func (c *Client) AcquireCloseLock(ctx context.Context, base string, ttl time.Duration) (token string, ok bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("acquire_close_lock", time.Since(start)) }()
	token = uuid.NewString()
	ok, err = c.rdb.SetNX(ctx, c.CloseLockKey(base), token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// ReleaseCloseLock drops the lock if token still owns it.
func (c *Client) ReleaseCloseLock(ctx context.Context, base, token string) error {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("release_close_lock", time.Since(start)) }()
	n, err := c.releaseScript.Run(ctx, c.rdb, []string{c.CloseLockKey(base)}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// SaveWalletList replaces the exported wallet list of a batch.
func (c *Client) SaveWalletList(ctx context.Context, batchID string, entries []notify.WalletEntry, ttl time.Duration) error {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("save_wallet_list", time.Since(start)) }()
	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, raw)
	}
	key := c.WalletListKey(batchID)
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// WalletList reads a batch's exported wallet list in collection order.
func (c *Client) WalletList(ctx context.Context, batchID string) ([]notify.WalletEntry, error) {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("wallet_list", time.Since(start)) }()
	raw, err := c.rdb.LRange(ctx, c.WalletListKey(batchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]notify.WalletEntry, 0, len(raw))
	for _, r := range raw {
		var e notify.WalletEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode wallet entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CloseLockKey is held while a close for base is in flight.
func (c *Client) CloseLockKey(base string) string {
	return fmt.Sprintf("drop:%s:close_lock", base)
}

// WalletListKey stores the collected {handle,url} entries of a notify batch.
func (c *Client) WalletListKey(batchID string) string {
	return fmt.Sprintf("batch:%s:wallets", batchID)
}
