package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/JonMunkholm/docmigrate/internal/schema"
	"github.com/JonMunkholm/docmigrate/internal/sink"
	"github.com/JonMunkholm/docmigrate/internal/source"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// fakeSource serves documents from memory. Sampling returns the first n
// documents so inference is deterministic.
type fakeSource struct {
	collections map[string][]bson.Raw
	order       []string
	countDelta  int64

	mu        sync.Mutex
	samples   int
	openCurs  int
	closedCur int
}

func newFakeSource() *fakeSource {
	return &fakeSource{collections: make(map[string][]bson.Raw)}
}

func (f *fakeSource) add(t *testing.T, coll string, docs ...bson.D) {
	t.Helper()
	if _, ok := f.collections[coll]; !ok {
		f.order = append(f.order, coll)
	}
	for _, d := range docs {
		b, err := bson.Marshal(d)
		require.NoError(t, err)
		f.collections[coll] = append(f.collections[coll], b)
	}
}

func (f *fakeSource) ListCollections(ctx context.Context, db string) ([]string, error) {
	return append([]string(nil), f.order...), nil
}

func (f *fakeSource) SampleDocuments(ctx context.Context, db, coll string, n int) ([]bson.Raw, error) {
	f.mu.Lock()
	f.samples++
	f.mu.Unlock()

	docs, ok := f.collections[coll]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrCollectionNotFound, coll)
	}
	if n > len(docs) {
		n = len(docs)
	}
	return docs[:n], nil
}

func (f *fakeSource) CountDocuments(ctx context.Context, db, coll string) (int64, error) {
	return int64(len(f.collections[coll])) + f.countDelta, nil
}

func (f *fakeSource) StreamDocuments(ctx context.Context, db, coll string) (source.Cursor, error) {
	f.mu.Lock()
	f.openCurs++
	f.mu.Unlock()
	return &fakeCursor{docs: f.collections[coll], pos: -1, src: f}, nil
}

func (f *fakeSource) Close(ctx context.Context) error { return nil }

type fakeCursor struct {
	docs []bson.Raw
	pos  int
	src  *fakeSource
	err  error
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	c.pos++
	return c.pos < len(c.docs)
}

func (c *fakeCursor) Document() bson.Raw { return c.docs[c.pos] }
func (c *fakeCursor) Err() error         { return c.err }

func (c *fakeCursor) Close(ctx context.Context) error {
	c.src.mu.Lock()
	c.src.closedCur++
	c.src.mu.Unlock()
	return nil
}

// fakeSink records every statement and transaction. Rows from a batch
// only become visible in tables once the whole batch succeeds.
type fakeSink struct {
	mu sync.Mutex

	execs        []string
	batches      []int
	tables       map[string][][]any
	failExec     map[string]error
	failBatch    int // 1-based InsertBatch call to fail, 0 for none
	failRow      int
	insertCalls  int
	insertTables []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		tables:   make(map[string][][]any),
		failExec: make(map[string]error),
	}
}

func (f *fakeSink) Exec(ctx context.Context, sql string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	if err, ok := f.failExec[sql]; ok {
		return 0, err
	}
	return 0, nil
}

func (f *fakeSink) ExecTx(ctx context.Context, stmts []sink.Statement) error {
	for _, st := range stmts {
		if _, err := f.Exec(ctx, st.SQL); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSink) InsertBatch(ctx context.Context, insertSQL string, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if f.failBatch == f.insertCalls {
		return &sink.RowError{Index: f.failRow, Err: errors.New("UNIQUE constraint failed: t._id")}
	}

	f.batches = append(f.batches, len(rows))
	f.insertTables = append(f.insertTables, insertSQL)
	for _, r := range rows {
		f.tables[insertSQL] = append(f.tables[insertSQL], append([]any(nil), r...))
	}
	return nil
}

func (f *fakeSink) Dialect() schema.Dialect { return schema.SQLite }
func (f *fakeSink) Describe() string        { return "fake" }
func (f *fakeSink) Close() error            { return nil }

func (f *fakeSink) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rows := range f.tables {
		n += len(rows)
	}
	return n
}

// numberedDocs builds n documents with string ids "0".."n-1".
func numberedDocs(n int) []bson.D {
	docs := make([]bson.D, n)
	for i := range docs {
		docs[i] = bson.D{
			{Key: "_id", Value: fmt.Sprint(i)},
			{Key: "n", Value: int32(i)},
		}
	}
	return docs
}
