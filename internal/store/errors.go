package store

import (
	"errors"
	"fmt"

	"github.com/georgesalomon/umarket2/internal/market"
)

var (
	// ErrNotConfigured is returned before any network call when the store
	// endpoint or credential is missing.
	ErrNotConfigured = errors.New("store is not configured")

	ErrNotFound = fmt.Errorf("%w: no matching row", market.ErrNotFound)

	// ErrConflict means a conditional write kept losing to other writers.
	ErrConflict = errors.New("concurrent update conflict")
)

// StoreError is a rejected or failed store call.
type StoreError struct {
	Op     string
	Table  string
	Status int
	Body   string
	Err    error
}

func (e *StoreError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
	case e.Body != "":
		return fmt.Sprintf("store %s %s: status %d: %s", e.Op, e.Table, e.Status, e.Body)
	}
	return fmt.Sprintf("store %s %s: status %d", e.Op, e.Table, e.Status)
}

func (e *StoreError) Unwrap() error { return e.Err }
