package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

// OrderCache is a read-through cache of order snapshots. It is never
// consulted by the write path.
//
// Entries are stored as "<version>|<json>" where version is the order's
// UpdatedAt in microseconds. A write never replaces a newer entry, so a slow
// read-through fill cannot bring back an older snapshot. Deletes leave a
// tombstone ("<version>|") for one TTL.
type OrderCache struct {
	Redis redis.Cmdable
	TTL   time.Duration
}

// KEYS[1] order key; ARGV: version, payload, ttl ms
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local v = tonumber(string.match(cur, '^(%d+)|'))
  if v and v > tonumber(ARGV[1]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1] .. '|' .. ARGV[2], 'PX', ARGV[3])
return 1
`)

func (c *OrderCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return TTLOrderCache
}

func cacheVersion(o orders.Order) int64 { return o.UpdatedAt.UnixMicro() }

// Get returns ok=false on a miss or a tombstone.
func (c *OrderCache) Get(ctx context.Context, id string) (orders.Order, bool, error) {
	s, err := c.Redis.Get(ctx, fmt.Sprintf(KeyOrder, id)).Result()
	if errors.Is(err, redis.Nil) {
		return orders.Order{}, false, nil
	}
	if err != nil {
		return orders.Order{}, false, err
	}
	_, payload, found := strings.Cut(s, "|")
	if !found {
		return orders.Order{}, false, fmt.Errorf("order cache %s: malformed entry", id)
	}
	if payload == "" {
		return orders.Order{}, false, nil
	}
	var o orders.Order
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return orders.Order{}, false, err
	}
	return o, true, nil
}

// Set stores o unless the cache already holds a newer version (including a
// tombstone). It reports whether o was written.
func (c *OrderCache) Set(ctx context.Context, o orders.Order) (bool, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return false, err
	}
	return c.write(ctx, o.ID, cacheVersion(o), string(b))
}

// Tombstone replaces the entry of a deleted order. deleted is the order as it
// was removed; every snapshot a reader could still hold is at most that
// version.
func (c *OrderCache) Tombstone(ctx context.Context, deleted orders.Order) error {
	_, err := c.write(ctx, deleted.ID, cacheVersion(deleted)+1, "")
	return err
}

func (c *OrderCache) write(ctx context.Context, id string, version int64, payload string) (bool, error) {
	n, err := setIfNewer.Run(ctx, c.Redis, []string{fmt.Sprintf(KeyOrder, id)},
		strconv.FormatInt(version, 10), payload, c.ttl().Milliseconds()).Int()
	return n == 1, err
}
