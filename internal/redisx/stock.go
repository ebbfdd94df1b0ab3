package redisx

import (
	"context"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type StockLevel struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// KEYS: levels, versions, low set; ARGV: product id, stock, version, low flag
var recordStock = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[2], ARGV[1]))
if cur and cur >= tonumber(ARGV[3]) then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
if ARGV[4] == '1' then
  redis.call('SADD', KEYS[3], ARGV[1])
else
  redis.call('SREM', KEYS[3], ARGV[1])
end
return 1
`)

// RecordStock stores the level of productID at the given ledger version and
// keeps the low-stock set in sync. A version at or below the stored one is
// stale and leaves everything untouched (applied=false), so events handled
// out of order cannot roll the snapshot back. low reports whether stock is
// at or below threshold.
func RecordStock(ctx context.Context, rdb redis.Cmdable, productID string, stock int, version int64, threshold int) (low, applied bool, err error) {
	low = stock <= threshold
	flag := "0"
	if low {
		flag = "1"
	}
	n, err := recordStock.Run(ctx, rdb, []string{KeyStockLevels, KeyStockVersions, KeyLowStock},
		productID, stock, version, flag).Int()
	if err != nil {
		return false, false, err
	}
	return low, n == 1, nil
}

// ForgetStock drops a deleted product from the snapshot.
func ForgetStock(ctx context.Context, rdb redis.Cmdable, productID string) error {
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, KeyStockLevels, productID)
		p.HDel(ctx, KeyStockVersions, productID)
		p.SRem(ctx, KeyLowStock, productID)
		return nil
	})
	return err
}

// LowStock lists products in the low-stock set with their last known level,
// lowest first.
func LowStock(ctx context.Context, rdb redis.Cmdable) ([]StockLevel, error) {
	ids, err := rdb.SMembers(ctx, KeyLowStock).Result()
	if err != nil || len(ids) == 0 {
		return []StockLevel{}, err
	}
	vals, err := rdb.HMGet(ctx, KeyStockLevels, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]StockLevel, 0, len(ids))
	for i, id := range ids {
		s, _ := vals[i].(string)
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		out = append(out, StockLevel{ProductID: id, Stock: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}
