// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSchemaRelational(t *testing.T) {
	got := RenderSchema(context.Background(), BackendSQL, shopInspector(), "shop")

	want := `Database: shop
Tables:

Table: customers
Columns:
  - id (integer) NOT NULL PRIMARY KEY AUTO_INCREMENT
  - name (text)

Table: orders
Columns:
  - id (bigint) NOT NULL PRIMARY KEY AUTO_INCREMENT
  - customer_id (integer) NOT NULL
  - total (numeric)
Sample Row:
  {"id": 1, "customer_id": 7, "total": 19.5}
`
	assert.Equal(t, want, got)
}

func TestRenderSchemaDocument(t *testing.T) {
	insp := &fakeInspector{
		order: []string{"artists", "drafts"},
		tables: map[string]fakeTable{
			"artists": {
				columns: []Column{{Name: "_id"}, {Name: "name"}},
				sample:  "{\n  \"_id\": \"65f0c0ffee\",\n  \"name\": \"Nina\"\n}",
			},
		},
	}

	got := RenderSchema(context.Background(), BackendMongo, insp, "music")

	want := `Database: music
Collections:

Collection: artists
Attributes:
  - _id
  - name
Sample Document:
  {
    "_id": "65f0c0ffee",
    "name": "Nina"
  }

Collection: drafts (empty)
`
	assert.Equal(t, want, got)
}

func TestRenderSchemaErrorsBecomeText(t *testing.T) {
	insp := &fakeInspector{err: errors.New("connection reset by peer")}

	assert.Equal(t, "Error getting PostgreSQL schema: connection reset by peer",
		RenderSchema(context.Background(), BackendSQL, insp, "shop"))
	assert.Equal(t, "Error getting MongoDB collections: connection reset by peer",
		RenderTables(context.Background(), BackendMongo, insp, "shop"))
	assert.Equal(t, "Error getting PostgreSQL columns: connection reset by peer",
		RenderColumns(context.Background(), BackendSQL, insp, "shop", "orders"))
	assert.Equal(t, "Error getting MongoDB sample: connection reset by peer",
		RenderSample(context.Background(), BackendMongo, insp, "shop", "orders"))
}

func TestRenderSinglePartCommands(t *testing.T) {
	ctx := context.Background()
	insp := shopInspector()

	assert.Equal(t, "Database: shop\nTables:\n- customers\n- orders", RenderTables(ctx, BackendSQL, insp, "shop"))
	assert.Equal(t, "Table: customers\nColumns:\n- id (integer) NOT NULL PRIMARY KEY AUTO_INCREMENT\n- name (text)",
		RenderColumns(ctx, BackendSQL, insp, "shop", "customers"))
	assert.Equal(t, "Table: orders\nSample Row:\n{\"id\": 1, \"customer_id\": 7, \"total\": 19.5}",
		RenderSample(ctx, BackendSQL, insp, "shop", "orders"))
	assert.Equal(t, "Table customers is empty", RenderSample(ctx, BackendSQL, insp, "shop", "customers"))
	assert.Equal(t, "Table missing does not exist or has no columns", RenderColumns(ctx, BackendSQL, insp, "shop", "missing"))
	assert.Equal(t, "Collection missing is empty", RenderColumns(ctx, BackendMongo, insp, "shop", "missing"))
}

func TestRenderSchemaIsNeverCached(t *testing.T) {
	insp := shopInspector()
	RenderSchema(context.Background(), BackendSQL, insp, "shop")
	first := insp.calls
	RenderSchema(context.Background(), BackendSQL, insp, "shop")
	assert.Equal(t, 2*first, insp.calls)
}

func TestParseBackendKind(t *testing.T) {
	for _, in := range []string{"sql", "SQL", " postgres ", "postgresql", "mysql", "relational"} {
		k, err := ParseBackendKind(in)
		assert.NoError(t, err, in)
		assert.Equal(t, BackendSQL, k, in)
	}
	for _, in := range []string{"mongo", "MongoDB", "document"} {
		k, err := ParseBackendKind(in)
		assert.NoError(t, err, in)
		assert.Equal(t, BackendMongo, k, in)
	}
	_, err := ParseBackendKind("oracle")
	assert.Error(t, err)
}
