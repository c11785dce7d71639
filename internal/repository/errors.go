package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("record already exists")

	// ErrReferenced is returned when a foreign key constraint rejects a write or delete.
	ErrReferenced = errors.New("record is referenced by or references a missing record")
)

func translate(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Join(ErrDuplicate, err)
		case pgerrcode.ForeignKeyViolation, pgerrcode.RestrictViolation:
			return errors.Join(ErrReferenced, err)
		}
	}

	return err
}
