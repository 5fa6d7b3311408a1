// Package errs declares the failure kinds shared by every stage of the
// feature pipeline. Errors returned by this module wrap exactly one of them,
// so callers can tell them apart with errors.Is.
package errs

import "errors"

var (
	// ErrConfig means the schema file is missing or malformed.
	ErrConfig = errors.New("config error")
	// ErrSchema means a table does not have the columns the schema requires.
	ErrSchema = errors.New("schema error")
	// ErrData means the data itself cannot be processed, such as an empty table
	// or too few minority-class samples to rebalance.
	ErrData = errors.New("data error")
	// ErrPersistence means the artifact store was unreachable or rejected a
	// read or write.
	ErrPersistence = errors.New("persistence error")
)
