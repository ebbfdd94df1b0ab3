package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNumericOutOfRange    = "22003"

	constraintOrderExternalID = "orders_external_id_key"
)

// mapErr translates Postgres errors into the orders error taxonomy.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", orders.ErrTxConflict, pgErr.Message)
	case codeUniqueViolation:
		// a concurrent create with the same external_id won the race; a
		// retry will find and return it
		if pgErr.ConstraintName == constraintOrderExternalID {
			return fmt.Errorf("%w: %s", orders.ErrTxConflict, pgErr.Message)
		}
		return fmt.Errorf("%w: %s", orders.ErrDuplicate, pgErr.Detail)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", orders.ErrDataIntegrity, pgErr.Detail)
	case codeNumericOutOfRange:
		// stock + delta past the INTEGER column
		return &orders.ValidationError{Field: "stock", Msg: "stock level out of range"}
	}
	return err
}

// referenced maps a foreign key violation on DELETE to orders.ErrReferenced;
// order rows keep their products and suppliers alive.
func referenced(err error, resource, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return fmt.Errorf("%s %s: %w", resource, id, orders.ErrReferenced)
	}
	return mapErr(err)
}
