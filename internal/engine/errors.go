package engine

import (
	"errors"
	"fmt"
)

// ErrNoPrimaryKey is a non-fatal skip signal: rows in such a table cannot
// be addressed, so it is excluded from sync and conflict analysis.
var ErrNoPrimaryKey = errors.New("table has no primary key")

// ConnectionError reports an unreachable engine at session open.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach %s database: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DDLError captures one failed structural change. It is logged and carried
// in the apply summary; it never aborts the rest of the plan.
type DDLError struct {
	Statement string
	Err       error
}

func (e *DDLError) Error() string {
	return fmt.Sprintf("ddl failed: %v (statement: %s)", e.Err, e.Statement)
}

func (e *DDLError) Unwrap() error { return e.Err }

// DataWriteError is table-scoped: it aborts the failing table's in-flight
// work but the run proceeds to the next table.
type DataWriteError struct {
	Table string
	Err   error
}

func (e *DataWriteError) Error() string {
	return fmt.Sprintf("data write failed for table %s: %v", e.Table, e.Err)
}

func (e *DataWriteError) Unwrap() error { return e.Err }

// ConflictAnalysisError is a read-path failure; the report mutates nothing,
// so it fails atomically and propagates to the caller.
type ConflictAnalysisError struct {
	Table string
	Err   error
}

func (e *ConflictAnalysisError) Error() string {
	return fmt.Sprintf("conflict analysis failed for table %s: %v", e.Table, e.Err)
}

func (e *ConflictAnalysisError) Unwrap() error { return e.Err }
