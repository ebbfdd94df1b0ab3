package orders

import "context"

// Store is the storage layer the order core runs against. Reads outside InTx
// see committed state only.
type Store interface {
	// InTx runs fn inside one storage transaction. The transaction commits
	// only if fn returns nil; any error rolls back every write made through tx.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, int, error)

	CreateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error)
	// UpdateProduct writes SKU, name, price and updated_at; stock is only
	// ever changed through Tx.AdjustStock.
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateSupplier(ctx context.Context, s Supplier) error
	GetSupplier(ctx context.Context, id string) (Supplier, error)
	ListSuppliers(ctx context.Context, f SupplierFilter) ([]Supplier, int, error)
	UpdateSupplier(ctx context.Context, s Supplier) (Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	// Ping reports whether the storage backend is reachable.
	Ping(ctx context.Context) error
}

// Tx is the transactional view. Every call participates in the enclosing
// transaction.
type Tx interface {
	GetSupplier(ctx context.Context, id string) (Supplier, error)
	GetProduct(ctx context.Context, id string) (Product, error)

	// AdjustStock is the product ledger primitive: stock+delta is committed
	// only if it stays >= 0, otherwise *StockError is returned and nothing
	// changes. Concurrent calls for one product are serialized.
	AdjustStock(ctx context.Context, productID string, delta int) (Product, error)

	// GetOrderForUpdate loads an order and holds it against concurrent
	// update/delete until the transaction ends.
	GetOrderForUpdate(ctx context.Context, id string) (Order, error)
	FindOrderByExternalID(ctx context.Context, externalID string) (Order, error)
	InsertOrder(ctx context.Context, o Order) error
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id string) error
}
