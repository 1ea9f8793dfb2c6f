// Package mongodb implements source.Source on top of the official MongoDB
// Go driver.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/JonMunkholm/docmigrate/internal/source"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultCursorBatchSize is the number of documents fetched per server
// round trip while streaming.
const DefaultCursorBatchSize = 1000

// Options configures the MongoDB connection.
type Options struct {
	URI             string
	AppName         string
	ConnectTimeout  time.Duration
	CursorBatchSize int
}

// Source reads documents from a MongoDB deployment.
type Source struct {
	client    *mongo.Client
	batchSize int32
}

var _ source.Source = (*Source)(nil)

// Connect opens a client and verifies the deployment is reachable.
func Connect(ctx context.Context, opts Options) (*Source, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
		clientOpts.SetServerSelectionTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	batchSize := opts.CursorBatchSize
	if batchSize <= 0 {
		batchSize = DefaultCursorBatchSize
	}

	slog.Debug("connected to mongodb", "app_name", opts.AppName)

	return &Source{client: client, batchSize: int32(batchSize)}, nil
}

// ListCollections returns the collection names of db, sorted by name.
func (s *Source) ListCollections(ctx context.Context, db string) ([]string, error) {
	names, err := s.client.Database(db).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections in %s: %w", db, err)
	}
	slices.Sort(names)
	return names, nil
}

// SampleDocuments draws up to n random documents with a $sample stage.
func (s *Source) SampleDocuments(ctx context.Context, db, coll string, n int) ([]bson.Raw, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}},
	}

	cur, err := s.client.Database(db).Collection(coll).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", db, coll, err)
	}
	defer cur.Close(ctx)

	docs := make([]bson.Raw, 0, n)
	for cur.Next(ctx) {
		// cur.Current is reused by the next call to Next.
		docs = append(docs, slices.Clone(cur.Current))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", db, coll, err)
	}

	return docs, nil
}

// CountDocuments returns the exact document count of a collection.
func (s *Source) CountDocuments(ctx context.Context, db, coll string) (int64, error) {
	n, err := s.client.Database(db).Collection(coll).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s.%s: %w", db, coll, err)
	}
	return n, nil
}

// StreamDocuments opens a non-expiring cursor over the whole collection in
// natural order.
func (s *Source) StreamDocuments(ctx context.Context, db, coll string) (source.Cursor, error) {
	opts := options.Find().
		SetNoCursorTimeout(true).
		SetBatchSize(s.batchSize).
		SetSort(bson.D{{Key: "$natural", Value: 1}})

	cur, err := s.client.Database(db).Collection(coll).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("stream %s.%s: %w", db, coll, err)
	}
	return &cursor{cur: cur}, nil
}

// Close disconnects the client.
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// cursor adapts *mongo.Cursor to source.Cursor.
type cursor struct {
	cur *mongo.Cursor
}

func (c *cursor) Next(ctx context.Context) bool   { return c.cur.Next(ctx) }
func (c *cursor) Document() bson.Raw              { return c.cur.Current }
func (c *cursor) Err() error                      { return c.cur.Err() }
func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
