package storage

import (
	"errors"
	"fmt"
)

// StoreError wraps a failure reported by the backing store: connection,
// statement or constraint errors that the conflict policy does not absorb.
type StoreError struct {
	Op    string // e.g. "begin", "write", "lookup", "commit"
	Table string // empty when not table-specific
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns err as a *StoreError unless it is nil or already one.
func Wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}
