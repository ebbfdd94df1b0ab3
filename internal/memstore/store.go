// Package memstore is an in-process orders.Store. Transactions are fully
// serialized and work on a staged copy that replaces the live state only on
// commit.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

type state struct {
	products  map[string]orders.Product
	suppliers map[string]orders.Supplier
	orders    map[string]orders.Order
}

func (s state) clone() state {
	out := state{
		products:  make(map[string]orders.Product, len(s.products)),
		suppliers: make(map[string]orders.Supplier, len(s.suppliers)),
		orders:    make(map[string]orders.Order, len(s.orders)),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.suppliers {
		out.suppliers[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v.Clone()
	}
	return out
}

type Store struct {
	mu sync.Mutex
	st state
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: state{
		products:  map[string]orders.Product{},
		suppliers: map[string]orders.Supplier{},
		orders:    map[string]orders.Order{},
	}}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := s.st.clone()
	if err := fn(ctx, &tx{st: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = staged
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	if !ok {
		return orders.Order{}, orders.NotFound(orders.ResourceOrder, id)
	}
	return o.Clone(), nil
}

func (s *Store) ListOrders(_ context.Context, f orders.OrderFilter) ([]orders.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []orders.Order
	for _, o := range s.st.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		all = append(all, o.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, f.Page, f.Limit), len(all), nil
}

func (s *Store) CreateProduct(_ context.Context, p orders.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.st.products {
		if x.SKU == p.SKU {
			return fmt.Errorf("product with SKU %s: %w", p.SKU, orders.ErrDuplicate)
		}
	}
	s.st.products[p.ID] = p
	return nil
}

func (s *Store) GetProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.product(id)
}

// UpdateProduct keeps the stored stock and stock version.
func (s *Store) UpdateProduct(_ context.Context, p orders.Product) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.st.product(p.ID)
	if err != nil {
		return orders.Product{}, err
	}
	for _, x := range s.st.products {
		if x.ID != p.ID && x.SKU == p.SKU {
			return orders.Product{}, fmt.Errorf("product with SKU %s: %w", p.SKU, orders.ErrDuplicate)
		}
	}
	cur.SKU, cur.Name, cur.PriceCents, cur.UpdatedAt = p.SKU, p.Name, p.PriceCents, p.UpdatedAt
	s.st.products[p.ID] = cur
	return cur, nil
}

// DeleteProduct refuses while any order item references the product, like
// the order_items foreign key does in Postgres.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.products[id]; !ok {
		return orders.NotFound(orders.ResourceProduct, id)
	}
	for _, o := range s.st.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return fmt.Errorf("product %s: %w", id, orders.ErrReferenced)
			}
		}
	}
	delete(s.st.products, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context, f orders.ProductFilter) ([]orders.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []orders.Product
	for _, p := range s.st.products {
		if f.SKU != "" && p.SKU != f.SKU {
			continue
		}
		if f.Name != "" && !containsFold(p.Name, f.Name) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
	return paginate(all, f.Page, f.Limit), len(all), nil
}

func (s *Store) CreateSupplier(_ context.Context, sup orders.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.st.suppliers {
		if x.Name == sup.Name {
			return orders.ErrDuplicate
		}
	}
	s.st.suppliers[sup.ID] = sup
	return nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (orders.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.supplier(id)
}

func (s *Store) UpdateSupplier(_ context.Context, sup orders.Supplier) (orders.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.st.supplier(sup.ID)
	if err != nil {
		return orders.Supplier{}, err
	}
	for _, x := range s.st.suppliers {
		if x.ID != sup.ID && x.Name == sup.Name {
			return orders.Supplier{}, orders.ErrDuplicate
		}
	}
	cur.Name, cur.Contact, cur.UpdatedAt = sup.Name, sup.Contact, sup.UpdatedAt
	s.st.suppliers[sup.ID] = cur
	return cur, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.suppliers[id]; !ok {
		return orders.NotFound(orders.ResourceSupplier, id)
	}
	for _, o := range s.st.orders {
		if o.SupplierID == id {
			return fmt.Errorf("supplier %s: %w", id, orders.ErrReferenced)
		}
	}
	delete(s.st.suppliers, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ListSuppliers(_ context.Context, f orders.SupplierFilter) ([]orders.Supplier, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []orders.Supplier
	for _, x := range s.st.suppliers {
		if f.Name != "" && !containsFold(x.Name, f.Name) {
			continue
		}
		all = append(all, x)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, f.Page, f.Limit), len(all), nil
}

func (st state) product(id string) (orders.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return orders.Product{}, orders.NotFound(orders.ResourceProduct, id)
	}
	return p, nil
}

func (st state) supplier(id string) (orders.Supplier, error) {
	x, ok := st.suppliers[id]
	if !ok {
		return orders.Supplier{}, orders.NotFound(orders.ResourceSupplier, id)
	}
	return x, nil
}

func paginate[T any](all []T, page, limit int) []T {
	_, limit, offset := orders.Normalize(page, limit)
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
