// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeCatalog is an in-memory server: database -> collection -> documents.
type fakeCatalog struct {
	dbs     map[string]*fakeDatabase
	listErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{dbs: make(map[string]*fakeDatabase)}
}

func (c *fakeCatalog) db(name string) *fakeDatabase {
	if d, ok := c.dbs[name]; ok {
		return d
	}
	d := &fakeDatabase{colls: make(map[string]*fakeCollection)}
	c.dbs[name] = d
	return d
}

func (c *fakeCatalog) ListDatabaseNames(context.Context) ([]string, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	var names []string
	for name := range c.dbs {
		names = append(names, name)
	}
	return names, nil
}

func (c *fakeCatalog) Database(name string) Database { return c.db(name) }

type fakeDatabase struct {
	colls map[string]*fakeCollection
}

func (d *fakeDatabase) coll(name string) *fakeCollection {
	if c, ok := d.colls[name]; ok {
		return c
	}
	c := &fakeCollection{}
	d.colls[name] = c
	return c
}

func (d *fakeDatabase) ListCollectionNames(context.Context) ([]string, error) {
	var names []string
	for name := range d.colls {
		names = append(names, name)
	}
	return names, nil
}

func (d *fakeDatabase) Collection(name string) Collection { return d.coll(name) }

type call struct {
	Method string
	Args   []any
}

// fakeCollection records calls and serves docs for reads. failOn makes the
// named method return err.
type fakeCollection struct {
	docs   []bson.D
	calls  []call
	failOn string
	err    error

	distinct []any
	modified int64
	upserted any
	deleted  int64
	nextIDs  []any
}

func (c *fakeCollection) record(method string, args ...any) error {
	c.calls = append(c.calls, call{Method: method, Args: args})
	if c.failOn == method {
		return c.err
	}
	return nil
}

func (c *fakeCollection) raws() ([]bson.Raw, error) {
	var out []bson.Raw
	for _, d := range c.docs {
		b, err := bson.Marshal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *fakeCollection) Find(_ context.Context, filter any, opts *options.FindOptions) ([]bson.Raw, error) {
	if err := c.record("Find", filter, opts); err != nil {
		return nil, err
	}
	return c.raws()
}

func (c *fakeCollection) FindOne(_ context.Context, filter any, opts *options.FindOneOptions) (bson.Raw, bool, error) {
	if err := c.record("FindOne", filter, opts); err != nil {
		return nil, false, err
	}
	raws, err := c.raws()
	if err != nil || len(raws) == 0 {
		return nil, false, err
	}
	return raws[0], true, nil
}

func (c *fakeCollection) Aggregate(_ context.Context, pipeline bson.A) ([]bson.Raw, error) {
	if err := c.record("Aggregate", pipeline); err != nil {
		return nil, err
	}
	return c.raws()
}

func (c *fakeCollection) CountDocuments(_ context.Context, filter any) (int64, error) {
	if err := c.record("CountDocuments", filter); err != nil {
		return 0, err
	}
	return int64(len(c.docs)), nil
}

func (c *fakeCollection) Distinct(_ context.Context, field string, filter any) ([]any, error) {
	if err := c.record("Distinct", field, filter); err != nil {
		return nil, err
	}
	return c.distinct, nil
}

func (c *fakeCollection) InsertOne(_ context.Context, doc any) (any, error) {
	if err := c.record("InsertOne", doc); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, doc.(bson.D))
	return c.id(), nil
}

func (c *fakeCollection) InsertMany(_ context.Context, docs []any) ([]any, error) {
	if err := c.record("InsertMany", docs); err != nil {
		return nil, err
	}
	ids := make([]any, len(docs))
	for i, d := range docs {
		c.docs = append(c.docs, d.(bson.D))
		ids[i] = c.id()
	}
	return ids, nil
}

func (c *fakeCollection) id() any {
	if len(c.nextIDs) == 0 {
		return fmt.Sprintf("id-%d", len(c.docs))
	}
	id := c.nextIDs[0]
	c.nextIDs = c.nextIDs[1:]
	return id
}

func (c *fakeCollection) update(method string, filter, update any, upsert bool) (UpdateResult, error) {
	if err := c.record(method, filter, update, upsert); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Matched: c.modified, Modified: c.modified, UpsertedID: c.upserted}, nil
}

func (c *fakeCollection) UpdateOne(_ context.Context, filter, update any, upsert bool) (UpdateResult, error) {
	return c.update("UpdateOne", filter, update, upsert)
}

func (c *fakeCollection) UpdateMany(_ context.Context, filter, update any, upsert bool) (UpdateResult, error) {
	return c.update("UpdateMany", filter, update, upsert)
}

func (c *fakeCollection) ReplaceOne(_ context.Context, filter, replacement any, upsert bool) (UpdateResult, error) {
	return c.update("ReplaceOne", filter, replacement, upsert)
}

func (c *fakeCollection) DeleteOne(_ context.Context, filter any) (int64, error) {
	if err := c.record("DeleteOne", filter); err != nil {
		return 0, err
	}
	return c.deleted, nil
}

func (c *fakeCollection) DeleteMany(_ context.Context, filter any) (int64, error) {
	if err := c.record("DeleteMany", filter); err != nil {
		return 0, err
	}
	return c.deleted, nil
}
