package models

import "fmt"

// CorruptionError reports a persisted value that could not be decoded.
type CorruptionError struct {
	Table string
	ID    string
	Field string
	Err   error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt %s.%s for row %s: %v", e.Table, e.Field, e.ID, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
