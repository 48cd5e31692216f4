package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is matched by every SchemaError.
var ErrSchema = errors.New("input table schema mismatch")

// SchemaError reports required columns missing from an input table.
// It aborts the run.
type SchemaError struct {
	// Table names the offending table.
	Table string

	// Missing lists the absent columns in the order they are required.
	Missing []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q is missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrSchema) true for any SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
