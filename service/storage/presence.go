package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"PRelay/logger"
)

// PresenceMirror keeps a best-effort, TTL'd copy of online state in redis
// so sibling relay nodes and operational tooling can answer "is this user
// online anywhere" without asking every node. The mirror is ephemeral and
// reconstructible; losing it costs nothing, keys simply repopulate as
// users reconnect. A nil mirror is valid and does nothing.
//
// key: relay:presence:<user>, value: node id, TTL bounds staleness.
type PresenceMirror struct {
	rdb    *redis.Client
	nodeID string
	ttl    time.Duration
}

func presenceKey(userID string) string { return "relay:presence:" + userID }

func NewPresenceMirror(addr, password string, db int, nodeID string, ttl time.Duration) (*PresenceMirror, error) {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return &PresenceMirror{rdb: rdb, nodeID: nodeID, ttl: ttl}, nil
}

// Online marks the user online on this node and renews the TTL.
func (m *PresenceMirror) Online(ctx context.Context, userID string) {
	if m == nil {
		return
	}
	if err := m.rdb.Set(ctx, presenceKey(userID), m.nodeID, m.ttl).Err(); err != nil {
		logger.Warnf("[presence-mirror] set failed user=%s err=%v", userID, err)
	}
}

// Offline clears the user's mirror entry.
func (m *PresenceMirror) Offline(ctx context.Context, userID string) {
	if m == nil {
		return
	}
	if err := m.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
		logger.Warnf("[presence-mirror] del failed user=%s err=%v", userID, err)
	}
}

// Lookup reports which node, if any, currently claims the user.
func (m *PresenceMirror) Lookup(ctx context.Context, userID string) (nodeID string, online bool, err error) {
	if m == nil {
		return "", false, nil
	}
	val, err := m.rdb.Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Close releases the redis connection.
func (m *PresenceMirror) Close() error {
	if m == nil {
		return nil
	}
	return m.rdb.Close()
}
