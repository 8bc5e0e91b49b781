package spcall

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// resultSets is a forward-only cursor over the result sets of one command.
type resultSets interface {
	// Scan materializes every row of the current result set into dest,
	// a pointer to a slice.
	Scan(dest any) error
	NextResultSet() bool
	Err() error
	Close() error
}

type sqlxSets struct {
	rows *sqlx.Rows
}

func (s sqlxSets) Scan(dest any) error {
	return errors.WithStack(sqlx.StructScan(s.rows, dest))
}

func (s sqlxSets) NextResultSet() bool { return s.rows.NextResultSet() }

func (s sqlxSets) Err() error { return s.rows.Err() }

func (s sqlxSets) Close() error { return s.rows.Close() }

// setReader walks result sets strictly in order. A set the driver never
// delivered reads as empty.
type setReader struct {
	sets      resultSets
	available bool
}

func newSetReader(sets resultSets) *setReader {
	return &setReader{sets: sets, available: true}
}

func (r *setReader) advance() {
	r.available = r.available && r.sets.NextResultSet()
}

// readSet materializes the current result set as a []T.
func readSet[T any](r *setReader) ([]T, error) {
	out := make([]T, 0)
	if !r.available {
		if err := r.sets.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		return out, nil
	}
	if err := r.sets.Scan(&out); err != nil {
		return nil, err
	}
	return out, nil
}
