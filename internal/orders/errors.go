package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation error")
	ErrTxConflict        = errors.New("transaction conflict")
	ErrDataIntegrity     = errors.New("data integrity fault")
	ErrDuplicate         = errors.New("already exists")
	ErrReferenced        = errors.New("still referenced by orders")
)

const (
	ResourceOrder    = "order"
	ResourceProduct  = "product"
	ResourceSupplier = "supplier"
)

// NotFoundError matches ErrNotFound and the resource specific sentinel.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for ID: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return true
	case ErrOrderNotFound:
		return e.Resource == ResourceOrder
	case ErrProductNotFound:
		return e.Resource == ResourceProduct
	case ErrSupplierNotFound:
		return e.Resource == ResourceSupplier
	}
	return false
}

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

// StockError reports a deduction that would drive stock below zero.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %d, requested: %d", name, e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// IntegrityError is returned when an order's effect cannot be reversed because
// a referenced record disappeared.
type IntegrityError struct {
	OrderID string
	Err     error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cannot restock order %s: %v", e.OrderID, e.Err)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

func (e *IntegrityError) Unwrap() error { return e.Err }

// Retryable reports whether the whole operation may be re-run.
func Retryable(err error) bool { return errors.Is(err, ErrTxConflict) }
