package analytics

import (
	"errors"
	"fmt"
)

// ErrAllGroupsFailed is returned by Engine.Dashboard when no metric group
// produced a result.
var ErrAllGroupsFailed = errors.New("every metric group failed")

// DataStoreError is a query or insert failure reported by the store. It
// aborts only the metric group that issued it.
type DataStoreError struct {
	Op  string
	Err error
}

func (e *DataStoreError) Error() string {
	return fmt.Sprintf("data store %s: %v", e.Op, e.Err)
}

func (e *DataStoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DataStoreError{Op: op, Err: err}
}

// ComputationError describes a malformed record. The record is skipped;
// the metric group carries on.
type ComputationError struct {
	Record string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("skip %s: %v", e.Record, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// ConfigurationError reports a setting that makes computations meaningless,
// such as a non-positive maximum capacity.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
