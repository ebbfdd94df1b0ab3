package orders

const (
	TopicOrderEvents   = "inventory.orders"
	TopicStockAdjusted = "inventory.stock.adjusted"
)

// Partition key = order_id (atau product_id untuk adjustment manual), supaya urutan event per key terjaga.
func PartitionKey(id string) []byte { return []byte(id) }
