// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"chatdb/cli/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// batchCollection records InsertMany batches; other calls are not used.
type batchCollection struct {
	docstore.Collection
	batches [][]any
}

func (c *batchCollection) InsertMany(_ context.Context, docs []any) ([]any, error) {
	c.batches = append(c.batches, docs)
	return make([]any, len(docs)), nil
}

type batchDatabase struct {
	docstore.Database
	colls map[string]*batchCollection
}

func (d *batchDatabase) Collection(name string) docstore.Collection {
	if d.colls[name] == nil {
		d.colls[name] = &batchCollection{}
	}
	return d.colls[name]
}

func TestDocumentsAreTyped(t *testing.T) {
	docs := Documents(Table{
		Name:    "users",
		Columns: []string{"name", "age", "vip"},
		Types:   []ColumnType{TypeText, TypeBigInt, TypeBoolean},
		Rows:    [][]string{{"Ann", "31", "true"}, {"Bob", "", "false"}},
	})
	assert.Equal(t, []any{
		bson.D{{Key: "name", Value: "Ann"}, {Key: "age", Value: int64(31)}, {Key: "vip", Value: true}},
		bson.D{{Key: "name", Value: "Bob"}, {Key: "age", Value: nil}, {Key: "vip", Value: false}},
	}, docs)
}

func TestLoadCollectionBatches(t *testing.T) {
	rows := make([][]string, 5)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	coll := &batchCollection{}

	n, err := LoadCollection(context.Background(), coll, Table{Name: "t", Columns: []string{"v"}, Types: []ColumnType{TypeText}, Rows: rows}, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, coll.batches, 3)
	assert.Len(t, coll.batches[0], 2)
	assert.Len(t, coll.batches[2], 1)
}

func TestImportMongo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.csv"), []byte("id\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.csv"), []byte("id,name\n1,Ann\n2,Bob\n"), 0o600))
	files, err := ReadDir(dir)
	require.NoError(t, err)

	db := &batchDatabase{colls: map[string]*batchCollection{}}
	var out bytes.Buffer
	require.NoError(t, ImportMongo(context.Background(), db, files, Options{Out: &out}))

	assert.Equal(t, "No records to import for empty\nImported 2 records into users collection\n", out.String())
	assert.Nil(t, db.colls["empty"])
	require.Len(t, db.colls["users"].batches, 1)
}
