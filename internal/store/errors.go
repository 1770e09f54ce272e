package store

import (
	"errors"
	"fmt"

	"MapLayerStore/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrPortalNotFound  = errors.New("portal not found")
	ErrLayerNotFound   = errors.New("layer not found")
	ErrDuplicateLayer  = errors.New("layer key already exists in portal")
	ErrDuplicatePortal = errors.New("portal code already exists")
	ErrConstraint      = errors.New("constraint violation")
	ErrInvalidLayer    = model.ErrInvalidLayer
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotFound        = errors.New("not found")
)

const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateCheckViolation      = "23514"
	sqlstateNotNullViolation    = "23502"
)

// classify maps engine errors onto the package sentinels while keeping the
// original *pgconn.PgError reachable through errors.As.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || classified(err) {
		return err
	}
	switch pgErr.Code {
	case sqlstateUniqueViolation:
		switch pgErr.ConstraintName {
		case "layers_portal_key_unique":
			return fmt.Errorf("%w: %s: %w", ErrDuplicateLayer, pgErr.Detail, err)
		case "portals_code_key":
			return fmt.Errorf("%w: %s: %w", ErrDuplicatePortal, pgErr.Detail, err)
		}
		return fmt.Errorf("%w (%s): %w", ErrConstraint, pgErr.ConstraintName, err)
	case sqlstateForeignKeyViolation, sqlstateCheckViolation, sqlstateNotNullViolation:
		return fmt.Errorf("%w (%s): %w", ErrConstraint, pgErr.ConstraintName, err)
	}
	return err
}

func classified(err error) bool {
	return errors.Is(err, ErrDuplicateLayer) || errors.Is(err, ErrDuplicatePortal) || errors.Is(err, ErrConstraint)
}
