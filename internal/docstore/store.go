// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package docstore is the MongoDB adapter. Synthesized expressions are parsed
// by a closed grammar (see Parse) and dispatched to collection calls; nothing
// the model writes is ever evaluated.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"chatdb/cli/internal/assistant"
	"chatdb/cli/internal/dsn"
	apperr "chatdb/cli/internal/errors"
	"chatdb/cli/internal/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// PingTimeout bounds the connectivity check done on connect.
const PingTimeout = 5 * time.Second

// Store is a MongoDB connection plus the currently selected database.
type Store struct {
	client   *mongo.Client
	catalog  Catalog
	database string
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithDatabase preselects a database without checking that it exists.
func WithDatabase(name string) Option {
	return func(s *Store) { s.database = name }
}

// Connect dials uri and pings the primary. A database named in the URI is
// selected.
func Connect(ctx context.Context, uri string, opts ...Option) (*Store, error) {
	normalized, err := dsn.Expect(uri, dsn.DBTypeMongoDB)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(normalized))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	opts = append([]Option{WithDatabase(dsn.DatabaseName(normalized))}, opts...)
	s := New(mongoCatalog{client: client}, opts...)
	s.client = client
	return s, nil
}

// New wraps a catalog, e.g. a fake in tests.
func New(catalog Catalog, opts ...Option) *Store {
	s := &Store{catalog: catalog, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind reports the document backend.
func (s *Store) Kind() assistant.BackendKind { return assistant.BackendMongo }

// Catalog returns the server handle, e.g. for loaders that write to a named
// database.
func (s *Store) Catalog() Catalog { return s.catalog }

// Database returns the selected database, or "" when none is selected.
func (s *Store) Database() string { return s.database }

// ListDatabases returns the database names on the server.
func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	return s.catalog.ListDatabaseNames(ctx)
}

// Select makes name the current database. Unknown names are rejected and the
// selection stays as it was.
func (s *Store) Select(ctx context.Context, name string) error {
	names, err := s.catalog.ListDatabaseNames(ctx)
	if err != nil {
		return apperr.Wrap(apperr.SelectionFailed, "could not list databases", err)
	}
	if !slices.Contains(names, name) {
		return apperr.New(apperr.SelectionFailed, fmt.Sprintf("Database '%s' not found", name))
	}
	s.database = name
	s.logger.Debug("selected mongodb database", slog.String("database", name))
	return nil
}

// Execute parses query and runs it against the selected database.
func (s *Store) Execute(ctx context.Context, query string) (assistant.Result, error) {
	if s.database == "" {
		return assistant.Result{}, apperr.New(apperr.BackendUnavailable, "no database selected")
	}
	script, err := Parse(query)
	if err != nil {
		return assistant.Result{}, err
	}
	s.logger.Debug("executing document script",
		slog.Int("operations", len(script.Ops)),
		slog.Bool("batch", script.Batch))
	return Run(ctx, s.catalog.Database(s.database), script)
}

// ListTables returns the collection names of database, sorted.
func (s *Store) ListTables(ctx context.Context, database string) ([]string, error) {
	names, err := s.catalog.Database(s.pick(database)).ListCollectionNames(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// DescribeColumns returns the field names of one document of collection.
func (s *Store) DescribeColumns(ctx context.Context, database, collection string) ([]assistant.Column, error) {
	raw, ok, err := s.sample(ctx, database, collection)
	if err != nil || !ok {
		return nil, err
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}
	cols := make([]assistant.Column, 0, len(elems))
	for _, e := range elems {
		cols = append(cols, assistant.Column{Name: e.Key()})
	}
	return cols, nil
}

// SampleRow returns one document of collection as indented Extended JSON.
func (s *Store) SampleRow(ctx context.Context, database, collection string) (string, bool, error) {
	raw, ok, err := s.sample(ctx, database, collection)
	if err != nil || !ok {
		return "", false, err
	}
	text, err := RenderDocument(raw)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (s *Store) sample(ctx context.Context, database, collection string) (bson.Raw, bool, error) {
	return s.catalog.Database(s.pick(database)).Collection(collection).FindOne(ctx, bson.D{}, options.FindOne())
}

func (s *Store) pick(database string) string {
	if database != "" {
		return database
	}
	return s.database
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type mongoCatalog struct{ client *mongo.Client }

func (c mongoCatalog) ListDatabaseNames(ctx context.Context) ([]string, error) {
	return c.client.ListDatabaseNames(ctx, bson.D{})
}

func (c mongoCatalog) Database(name string) Database {
	return mongoDatabase{db: c.client.Database(name)}
}

type mongoDatabase struct{ db *mongo.Database }

func (d mongoDatabase) ListCollectionNames(ctx context.Context) ([]string, error) {
	return d.db.ListCollectionNames(ctx, bson.D{})
}

func (d mongoDatabase) Collection(name string) Collection {
	return mongoCollection{coll: d.db.Collection(name)}
}

type mongoCollection struct{ coll *mongo.Collection }

func (c mongoCollection) Find(ctx context.Context, filter any, opts *options.FindOptions) ([]bson.Raw, error) {
	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return drain(ctx, cur)
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts *options.FindOneOptions) (bson.Raw, bool, error) {
	raw, err := c.coll.FindOne(ctx, filter, opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c mongoCollection) Aggregate(ctx context.Context, pipeline bson.A) ([]bson.Raw, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return drain(ctx, cur)
}

func (c mongoCollection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c mongoCollection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	return c.coll.Distinct(ctx, field, filter)
}

func (c mongoCollection) InsertOne(ctx context.Context, doc any) (any, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (c mongoCollection) InsertMany(ctx context.Context, docs []any) ([]any, error) {
	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any, upsert bool) (UpdateResult, error) {
	return updateResult(c.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(upsert)))
}

func (c mongoCollection) UpdateMany(ctx context.Context, filter, update any, upsert bool) (UpdateResult, error) {
	return updateResult(c.coll.UpdateMany(ctx, filter, update, options.Update().SetUpsert(upsert)))
}

func (c mongoCollection) ReplaceOne(ctx context.Context, filter, replacement any, upsert bool) (UpdateResult, error) {
	return updateResult(c.coll.ReplaceOne(ctx, filter, replacement, options.Replace().SetUpsert(upsert)))
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c mongoCollection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func updateResult(res *mongo.UpdateResult, err error) (UpdateResult, error) {
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{
		Matched:    res.MatchedCount,
		Modified:   res.ModifiedCount,
		UpsertedID: res.UpsertedID,
	}, nil
}

func drain(ctx context.Context, cur *mongo.Cursor) ([]bson.Raw, error) {
	defer cur.Close(ctx)
	var out []bson.Raw
	for cur.Next(ctx) {
		// Current is reused by the cursor.
		out = append(out, slices.Clone(cur.Current))
	}
	return out, cur.Err()
}
