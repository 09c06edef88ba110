// Package cache is the write-through profile cache other parts of the bot
// read for fast entitlement lookups. The store stays the system of record;
// everything here is best-effort and may be briefly stale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"neuropay/internal/models"
)

// SchemaVersion tags serialized snapshots. Readers drop entries written
// with a different entity shape instead of mis-decoding them.
const SchemaVersion = 1

const keyPrefix = "profile:"

// ProfileSnapshot is the flat blob stored per telegram user id.
type ProfileSnapshot struct {
	SchemaVersion int            `json:"schema_version"`
	Profile       models.Profile `json:"profile"`
	Tariff        *models.Tariff `json:"tariff,omitempty"`
}

type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type ProfileCache struct {
	client redisCmdable
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func key(tgid int64) string {
	return keyPrefix + strconv.FormatInt(tgid, 10)
}

// Put serializes the profile (with its tariff, when loaded) and overwrites
// the cache entry for its telegram id.
func (c *ProfileCache) Put(ctx context.Context, p *models.Profile) error {
	snap := ProfileSnapshot{
		SchemaVersion: SchemaVersion,
		Profile:       *p,
		Tariff:        p.Tariff,
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal profile snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(p.TGID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("set profile cache: %w", err)
	}
	return nil
}

// Get returns the cached snapshot, or nil on a miss. Entries written under
// another schema version count as misses.
func (c *ProfileCache) Get(ctx context.Context, tgid int64) (*ProfileSnapshot, error) {
	raw, err := c.client.Get(ctx, key(tgid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile cache: %w", err)
	}

	var snap ProfileSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode profile snapshot: %w", err)
	}
	if snap.SchemaVersion != SchemaVersion {
		return nil, nil
	}
	return &snap, nil
}

func (c *ProfileCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
