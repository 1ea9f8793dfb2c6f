package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/docmigrate/internal/sink"
)

// ErrNoCollections is returned when --all-tables finds an empty database.
var ErrNoCollections = errors.New("no collections found")

// BatchError reports a batch that was rolled back.
type BatchError struct {
	Collection string
	Batch      int // 1-based batch number within the collection
	Row        int // zero-based row within the batch, -1 if unknown
	Err        error
}

func newBatchError(collection string, batch int, err error) *BatchError {
	be := &BatchError{Collection: collection, Batch: batch, Row: -1, Err: err}
	var rowErr *sink.RowError
	if errors.As(err, &rowErr) {
		be.Row = rowErr.Index
		be.Err = rowErr.Err
	}
	return be
}

func (e *BatchError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("batch insert failed: collection %s, batch %d, row %d: %v",
			e.Collection, e.Batch, e.Row, e.Err)
	}
	return fmt.Sprintf("batch insert failed: collection %s, batch %d: %v", e.Collection, e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
