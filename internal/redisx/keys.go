package redisx

import "time"

const (
	// Cache order snapshot: order:{order_id} -> JSON orders.Order
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Latest known stock per product: hash stock:levels {product_id -> stock}
	KeyStockLevels = "stock:levels"

	// Ledger version of each stored level: hash stock:versions {product_id -> version}
	KeyStockVersions = "stock:versions"

	// Products at or below the low-stock threshold: set stock:low
	KeyLowStock = "stock:low"
)

var (
	TTLOrderCache = 30 * time.Second
	TTLDedup      = 48 * time.Hour
)
