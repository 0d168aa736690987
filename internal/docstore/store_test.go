// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package docstore

import (
	"context"
	"errors"
	"testing"

	"chatdb/cli/internal/assistant"
	apperr "chatdb/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSelectMissingDatabaseKeepsSelection(t *testing.T) {
	cat := newFakeCatalog()
	cat.db("shop")
	store := New(cat)

	require.NoError(t, store.Select(context.Background(), "shop"))
	assert.Equal(t, "shop", store.Database())

	err := store.Select(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, apperr.SelectionFailed, apperr.KindOf(err))
	assert.Equal(t, "Database 'nope' not found", apperr.Cause(err))
	assert.Equal(t, "shop", store.Database())
}

func TestSelectListFailure(t *testing.T) {
	cat := newFakeCatalog()
	cat.listErr = errors.New("connection refused")
	store := New(cat, WithDatabase("shop"))

	err := store.Select(context.Background(), "other")
	require.Error(t, err)
	assert.Equal(t, "connection refused", apperr.Cause(err))
	assert.Equal(t, "shop", store.Database())
}

func TestExecuteRequiresDatabase(t *testing.T) {
	store := New(newFakeCatalog())

	_, err := store.Execute(context.Background(), `db.users.find()`)
	require.Error(t, err)
	assert.Equal(t, apperr.BackendUnavailable, apperr.KindOf(err))
}

func TestExecuteReportsParseErrors(t *testing.T) {
	cat := newFakeCatalog()
	store := New(cat, WithDatabase("shop"))

	_, err := store.Execute(context.Background(), `db.orders.find({"total": > 5})`)
	require.Error(t, err)
	assert.Equal(t, apperr.ParseFailed, apperr.KindOf(err))
	assert.Empty(t, cat.db("shop").colls, "nothing should run")
}

func TestExecuteRunsAgainstSelectedDatabase(t *testing.T) {
	cat := newFakeCatalog()
	cat.db("shop").coll("orders").docs = []bson.D{{{Key: "item", Value: "pen"}}}
	store := New(cat, WithDatabase("shop"))

	res, err := store.Execute(context.Background(), `db.orders.find({})`)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.JSONEq(t, `{"item": "pen"}`, res.Documents[0])
	assert.Equal(t, assistant.BackendMongo, store.Kind())
}

func TestInspection(t *testing.T) {
	cat := newFakeCatalog()
	shop := cat.db("shop")
	shop.coll("orders").docs = []bson.D{{{Key: "_id", Value: "o1"}, {Key: "item", Value: "pen"}, {Key: "qty", Value: int32(2)}}}
	shop.coll("customers")
	shop.coll("audit")
	store := New(cat)
	ctx := context.Background()

	tables, err := store.ListTables(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "customers", "orders"}, tables)

	cols, err := store.DescribeColumns(ctx, "shop", "orders")
	require.NoError(t, err)
	assert.Equal(t, []assistant.Column{{Name: "_id"}, {Name: "item"}, {Name: "qty"}}, cols)

	sample, ok, err := store.SampleRow(ctx, "shop", "orders")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"_id": "o1", "item": "pen", "qty": 2}`, sample)

	_, ok, err = store.SampleRow(ctx, "shop", "audit")
	require.NoError(t, err)
	assert.False(t, ok)

	cols, err = store.DescribeColumns(ctx, "shop", "audit")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestRenderSchemaForDocumentStore(t *testing.T) {
	cat := newFakeCatalog()
	shop := cat.db("shop")
	shop.coll("orders").docs = []bson.D{{{Key: "item", Value: "pen"}}}
	shop.coll("empty")
	store := New(cat, WithDatabase("shop"))

	text := assistant.RenderSchema(context.Background(), assistant.BackendMongo, store, "shop")
	assert.Contains(t, text, "Collection: empty (empty)")
	assert.Contains(t, text, "Collection: orders")
	assert.Contains(t, text, "  - item")
}
