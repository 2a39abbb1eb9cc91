package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetLoginSession stores a login session token mapped to a user ID
func (c *Client) SetLoginSession(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("session:%s", token), userID, ttl).Err()
}

// GetLoginSession resolves a login session token to its user ID.
// Returns false when the session does not exist or has expired.
func (c *Client) GetLoginSession(ctx context.Context, token string) (int64, bool, error) {
	userID, err := c.rdb.Get(ctx, fmt.Sprintf("session:%s", token)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// DeleteLoginSession removes a login session
func (c *Client) DeleteLoginSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("session:%s", token)).Err()
}

// ChatMessage is one turn of a support conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const chatHistoryTTL = 24 * time.Hour

// AppendChatHistory appends turns to a session's conversation and
// trims it to the newest maxLen entries.
func (c *Client) AppendChatHistory(ctx context.Context, sessionID string, maxLen int, msgs ...ChatMessage) error {
	key := fmt.Sprintf("chat:%s", sessionID)

	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, b)
	}

	pipe := c.rdb.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-maxLen), -1)
	pipe.Expire(ctx, key, chatHistoryTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// GetChatHistory retrieves a session's conversation, oldest first
func (c *Client) GetChatHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	key := fmt.Sprintf("chat:%s", sessionID)

	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]ChatMessage, 0, len(raw))
	for _, r := range raw {
		var m ChatMessage
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ClearChatHistory deletes a session's conversation
func (c *Client) ClearChatHistory(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("chat:%s", sessionID)).Err()
}

// AcquireLock acquires an advisory lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases an advisory lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
