package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots as JSON strings under <prefix>s:<id>, plus a
// set at <prefix>meta:index naming the known session ids. Every session key
// lives under "s:", so no session id can collide with the index.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl of zero keeps snapshots forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "dm:checkpoint:"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// OpenRedis connects to addr and checks the connection.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix, ttl), nil
}

func (r *RedisStore) key(id string) string { return r.prefix + "s:" + id }
func (r *RedisStore) indexKey() string     { return r.prefix + "meta:index" }

// Load reads a session's snapshot.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	id, err := normalizeID(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load checkpoint: %w", err)
	}
	return decodeJSON(data)
}

// Save writes the snapshot and indexes the session in one MULTI/EXEC.
func (r *RedisStore) Save(ctx context.Context, sessionID string, snapshot Snapshot) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	payload, err := encodeJSON(prepare(id, snapshot))
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(id), payload, r.ttl)
		pipe.SAdd(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// List returns the indexed sessions whose snapshots still exist.
func (r *RedisStore) List(ctx context.Context) ([]Summary, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	out := []Summary{}
	for _, id := range ids {
		snap, err := r.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired through TTL; drop it from the index.
			r.client.SRem(ctx, r.indexKey(), id)
			continue
		}
		if err != nil {
			continue
		}
		out = append(out, summarize(snap))
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes the snapshot and its index entry.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	var del *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.key(id))
		pipe.SRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
