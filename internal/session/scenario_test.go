// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"bytes"
	"context"
	"testing"

	"chatdb/cli/internal/assistant"
	"chatdb/cli/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// shopCatalog serves one database "shop" with an empty "orders" collection.
type shopCatalog struct{}

func (shopCatalog) ListDatabaseNames(context.Context) ([]string, error) {
	return []string{"admin", "shop"}, nil
}

func (shopCatalog) Database(string) docstore.Database { return shopDatabase{} }

type shopDatabase struct{}

func (shopDatabase) ListCollectionNames(context.Context) ([]string, error) {
	return []string{"orders"}, nil
}

func (shopDatabase) Collection(string) docstore.Collection { return &emptyCollection{} }

// emptyCollection has no documents. Only the calls schema rendering makes are
// implemented; anything else panics through the nil embedded interface.
type emptyCollection struct {
	docstore.Collection
}

func (*emptyCollection) FindOne(context.Context, any, *options.FindOneOptions) (bson.Raw, bool, error) {
	return nil, false, nil
}

// The model keeps producing a document expression the parser rejects. Each
// repair sees the failing expression and the parser's error, and the third
// error is what the user is shown.
func TestScenarioMalformedDocumentExpression(t *testing.T) {
	oracle := &scriptedOracle{replies: []string{
		classify("select", "shop"),
		classify("query", "open orders"),
		"```mongodb\ndb.orders.find({\"status\": \"open\"\n```",
		"```mongodb\ndb.orders.find({\"status\": open})\n```",
		"```mongodb\ndb.orders.find({status: open})\n```",
	}}
	var out bytes.Buffer
	s := New(Config{
		Oracle: oracle,
		Mongo:  docstore.New(shopCatalog{}),
		State:  State{Backend: assistant.BackendMongo},
		Out:    &out,
	})

	s.Handle(context.Background(), "use shop")
	require.Equal(t, "shop", s.State().Database)

	s.Handle(context.Background(), "open orders")

	require.Len(t, oracle.prompts, 5)
	assert.Contains(t, oracle.prompts[2], "Collection: orders (empty)")

	firstRepair := oracle.prompts[3]
	assert.Contains(t, firstRepair, `db.orders.find({"status": "open"`)
	assert.Contains(t, firstRepair, "line 1, column 33: expected ',' or '}' in object, found end of expression")

	secondRepair := oracle.prompts[4]
	assert.Contains(t, secondRepair, `db.orders.find({"status": open})`)
	assert.Contains(t, secondRepair, `unexpected identifier "open"`)

	assert.Contains(t, out.String(), `❌ Query failed after 3 attempts: line 1, column 25: unexpected identifier "open" (strings must be quoted)`)
}
