// Package source defines the read side of a migration: a document store
// that can list, sample, count and stream the documents of a collection.
package source

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrCollectionNotFound is returned when a named collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Source reads documents from a document database.
type Source interface {
	// ListCollections returns the collection names of database db.
	ListCollections(ctx context.Context, db string) ([]string, error)

	// SampleDocuments returns up to n documents chosen at random.
	SampleDocuments(ctx context.Context, db, coll string, n int) ([]bson.Raw, error)

	// CountDocuments returns the number of documents in a collection.
	CountDocuments(ctx context.Context, db, coll string) (int64, error)

	// StreamDocuments opens a cursor over every document in insertion
	// order. The cursor must not expire while the caller is idle between
	// reads. Callers must Close it.
	StreamDocuments(ctx context.Context, db, coll string) (Cursor, error)

	Close(ctx context.Context) error
}

// Cursor iterates a document stream.
//
// The document returned by Document is only valid until the next call to
// Next.
type Cursor interface {
	Next(ctx context.Context) bool
	Document() bson.Raw
	Err() error
	Close(ctx context.Context) error
}
