// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package docstore

import (
	"testing"
	"time"

	apperr "chatdb/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseSingleOperation(t *testing.T) {
	script, err := Parse(`db.orders.find({"status": "shipped", total: {$gt: 10.5}})`)
	require.NoError(t, err)

	assert.False(t, script.Batch)
	require.Len(t, script.Ops, 1)
	op := script.Ops[0]
	assert.Equal(t, "orders", op.Collection)
	assert.Equal(t, MethodFind, op.Method)
	assert.Equal(t, []any{bson.D{
		{Key: "status", Value: "shipped"},
		{Key: "total", Value: bson.D{{Key: "$gt", Value: 10.5}}},
	}}, op.Args)
}

func TestParseCollectionForms(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"attribute", `db.users.find()`, "users"},
		{"subscript", `db["order-items"].find()`, "order-items"},
		{"single quoted subscript", `db['order items'].find()`, "order items"},
		{"getCollection", `db.getCollection("logs").find()`, "logs"},
		{"python get_collection", `db.get_collection('logs').find()`, "logs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := Parse(tt.expr)
			require.NoError(t, err)
			require.Len(t, script.Ops, 1)
			assert.Equal(t, tt.want, script.Ops[0].Collection)
		})
	}
}

func TestParseMethodAliases(t *testing.T) {
	script, err := Parse(`db.users.findOne({"name": "Ann"})`)
	require.NoError(t, err)
	assert.Equal(t, MethodFindOne, script.Ops[0].Method)

	script, err = Parse(`db.users.countDocuments({})`)
	require.NoError(t, err)
	assert.Equal(t, MethodCountDocuments, script.Ops[0].Method)
}

func TestParseModifiers(t *testing.T) {
	script, err := Parse("db.orders.find({}, {\"_id\": 0})\n  .sort(\"total\", -1)\n  .skip(5)\n  .limit(10)")
	require.NoError(t, err)
	require.Len(t, script.Ops, 1)

	op := script.Ops[0]
	assert.Equal(t, bson.D{{Key: "total", Value: int32(-1)}}, op.Sort)
	require.NotNil(t, op.Limit)
	require.NotNil(t, op.Skip)
	assert.Equal(t, int64(10), *op.Limit)
	assert.Equal(t, int64(5), *op.Skip)
	assert.Len(t, op.Args, 2)
}

func TestParseSortForms(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bson.D
	}{
		{"document", `db.c.find().sort({"a": 1, "b": -1})`, bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: int32(-1)}}},
		{"field only", `db.c.find().sort("a")`, bson.D{{Key: "a", Value: int32(1)}}},
		{"pairs", `db.c.find().sort([["a", -1], ["b", 1]])`, bson.D{{Key: "a", Value: int32(-1)}, {Key: "b", Value: int32(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, script.Ops[0].Sort)
		})
	}
}

func TestParseKeywordAndOptionDocumentArgs(t *testing.T) {
	script, err := Parse(`db.users.update_one({"name": "Ann"}, {"$set": {"age": 31}}, upsert=True)`)
	require.NoError(t, err)
	op := script.Ops[0]
	assert.Equal(t, true, op.Options["upsert"])
	assert.Len(t, op.Args, 2)

	script, err = Parse(`db.users.updateOne({name: "Ann"}, {$set: {age: 31}}, {upsert: true})`)
	require.NoError(t, err)
	op = script.Ops[0]
	assert.Equal(t, true, op.Options["upsert"])
	assert.Len(t, op.Args, 2)
}

func TestParseScalars(t *testing.T) {
	script, err := Parse(`db.c.insert_one({
		"i": 42, "big": 9007199254740993, "neg": -3, "f": 1.5e3,
		"t": True, "f2": false, "n": None, "nil": null,
		"s": 'it\'s', "esc": "a\"b\né",
		"id": ObjectId("507f1f77bcf86cd799439011"),
		"at": ISODate("2024-01-31T10:00:00Z"),
		"day": new Date("2024-02-01"),
		"long": NumberLong(7),
		"list": [1, "two", [3], {}],
	})`)
	require.NoError(t, err)

	doc := script.Ops[0].Args[0].(bson.D).Map()
	assert.Equal(t, int32(42), doc["i"])
	assert.Equal(t, int64(9007199254740993), doc["big"])
	assert.Equal(t, int32(-3), doc["neg"])
	assert.Equal(t, 1500.0, doc["f"])
	assert.Equal(t, true, doc["t"])
	assert.Equal(t, false, doc["f2"])
	assert.Nil(t, doc["n"])
	assert.Nil(t, doc["nil"])
	assert.Equal(t, "it's", doc["s"])
	assert.Equal(t, "a\"b\né", doc["esc"])
	assert.Equal(t, int64(7), doc["long"])

	id, err := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, id, doc["id"])
	assert.Equal(t, primitive.NewDateTimeFromTime(time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)), doc["at"])
	assert.Equal(t, primitive.NewDateTimeFromTime(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), doc["day"])
	assert.Equal(t, bson.A{int32(1), "two", bson.A{int32(3)}, bson.D{}}, doc["list"])
}

func TestParseSequence(t *testing.T) {
	script, err := Parse(`
		# seed two users
		db.users.insert_one({"name": "Ann"}); db.users.insert_one({"name": "Bob"})
		// then count them
		db.users.count_documents({})
	`)
	require.NoError(t, err)

	assert.False(t, script.Batch)
	require.Len(t, script.Ops, 3)
	assert.Equal(t, MethodInsertOne, script.Ops[0].Method)
	assert.Equal(t, MethodInsertOne, script.Ops[1].Method)
	assert.Equal(t, MethodCountDocuments, script.Ops[2].Method)
}

func TestParseBatch(t *testing.T) {
	script, err := Parse(`[
		db.products.insert_one({"sku": "A1"}),
		db.products.delete_many({"sku": "OLD"}),
	]`)
	require.NoError(t, err)

	assert.True(t, script.Batch)
	require.Len(t, script.Ops, 2)
	assert.Equal(t, MethodDeleteMany, script.Ops[1].Method)
}

func TestParseSingleOperationIsNotABatch(t *testing.T) {
	script, err := Parse(`db.products.insert_many([{"sku": "A1"}, {"sku": "B2"}])`)
	require.NoError(t, err)
	assert.False(t, script.Batch)
	require.Len(t, script.Ops, 1)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"empty", "   ", "line 1, column 4: empty expression"},
		{"not db", `users.find()`, "line 1, column 1: expected an operation starting with 'db'"},
		{"unknown method", `db.users.drop()`, `unsupported method "drop"`},
		{"unterminated string", `db.users.find({"name": "Ann})`, "unterminated string"},
		{"unquoted value", `db.users.find({"name": Ann})`, `unexpected identifier "Ann"`},
		{"missing separator", `db.a.find() db.b.find()`, "expected ';' or a new line"},
		{"modifier on non find", `db.a.count_documents({}).limit(1)`, "limit() can only follow find()"},
		{"bad object id", `db.a.find({"_id": ObjectId("xyz")})`, "invalid ObjectId"},
		{"insert_many needs list", `db.a.insert_many({"a": 1})`, "insert_many() takes a non-empty list of documents"},
		{"delete needs filter", `db.a.delete_many()`, "takes exactly one filter document"},
		{"trailing text after batch", `[db.a.find()] x`, "after the closing ']'"},
		{"eval attempt", `db.a.find({"$where": function() { return true }})`, `unexpected identifier "function"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			require.Error(t, err)
			assert.Equal(t, apperr.ParseFailed, apperr.KindOf(err))
			assert.Contains(t, apperr.Cause(err), tt.want)
		})
	}
}

func TestSyntaxErrorReportsLineAndColumn(t *testing.T) {
	_, err := Parse("db.users.find(\n  {\"age\": >30}\n)")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 2, syntaxErr.Line)
	assert.Equal(t, 11, syntaxErr.Column)
}
