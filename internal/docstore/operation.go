// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package docstore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Method is one of the collection operations a script may call.
type Method string

const (
	MethodFind           Method = "find"
	MethodFindOne        Method = "find_one"
	MethodAggregate      Method = "aggregate"
	MethodCountDocuments Method = "count_documents"
	MethodDistinct       Method = "distinct"
	MethodInsertOne      Method = "insert_one"
	MethodInsertMany     Method = "insert_many"
	MethodUpdateOne      Method = "update_one"
	MethodUpdateMany     Method = "update_many"
	MethodReplaceOne     Method = "replace_one"
	MethodDeleteOne      Method = "delete_one"
	MethodDeleteMany     Method = "delete_many"
)

// methodNames maps every accepted spelling to its Method.
var methodNames = map[string]Method{
	"find":            MethodFind,
	"find_one":        MethodFindOne,
	"findOne":         MethodFindOne,
	"aggregate":       MethodAggregate,
	"count_documents": MethodCountDocuments,
	"countDocuments":  MethodCountDocuments,
	"distinct":        MethodDistinct,
	"insert_one":      MethodInsertOne,
	"insertOne":       MethodInsertOne,
	"insert_many":     MethodInsertMany,
	"insertMany":      MethodInsertMany,
	"update_one":      MethodUpdateOne,
	"updateOne":       MethodUpdateOne,
	"update_many":     MethodUpdateMany,
	"updateMany":      MethodUpdateMany,
	"replace_one":     MethodReplaceOne,
	"replaceOne":      MethodReplaceOne,
	"delete_one":      MethodDeleteOne,
	"deleteOne":       MethodDeleteOne,
	"delete_many":     MethodDeleteMany,
	"deleteMany":      MethodDeleteMany,
}

// Operation is one parsed collection call. Args hold parsed values: bson.D for
// objects, bson.A for arrays, and strings, numbers, booleans, nil,
// primitive.ObjectID or primitive.DateTime for scalars.
type Operation struct {
	Collection string
	Method     Method
	Args       []any
	// Options holds keyword arguments such as upsert=True.
	Options map[string]any

	// Cursor modifiers, find only.
	Sort  bson.D
	Limit *int64
	Skip  *int64
}

// Script is a parsed document expression. Batch is true when the text was a
// bracketed list of operations; it is a property of the syntax, never guessed
// from the operations themselves.
type Script struct {
	Batch bool
	Ops   []Operation
}

// IsWrite reports whether the method changes data.
func (m Method) IsWrite() bool {
	switch m {
	case MethodInsertOne, MethodInsertMany, MethodUpdateOne, MethodUpdateMany,
		MethodReplaceOne, MethodDeleteOne, MethodDeleteMany:
		return true
	}
	return false
}

// checkArgs validates argument shapes per method and folds a trailing options
// document into Options.
func checkArgs(op *Operation) error {
	n := len(op.Args)
	switch op.Method {
	case MethodFind, MethodFindOne:
		if n > 2 {
			return fmt.Errorf("%s() takes a filter and an optional projection", op.Method)
		}
		return allDocs(op)
	case MethodCountDocuments:
		if n > 1 {
			return fmt.Errorf("%s() takes a single filter document", op.Method)
		}
		return allDocs(op)
	case MethodDeleteOne, MethodDeleteMany:
		if n != 1 {
			return fmt.Errorf("%s() takes exactly one filter document", op.Method)
		}
		return allDocs(op)
	case MethodInsertOne:
		if n != 1 {
			return fmt.Errorf("insert_one() takes exactly one document")
		}
		return allDocs(op)
	case MethodInsertMany:
		if n != 1 {
			return fmt.Errorf("insert_many() takes a list of documents")
		}
		list, ok := op.Args[0].(bson.A)
		if !ok || len(list) == 0 {
			return fmt.Errorf("insert_many() takes a non-empty list of documents")
		}
		for i, v := range list {
			if _, ok := v.(bson.D); !ok {
				return fmt.Errorf("insert_many() item %d is not a document", i)
			}
		}
		return nil
	case MethodAggregate:
		if n != 1 {
			return fmt.Errorf("aggregate() takes a list of pipeline stages")
		}
		stages, ok := op.Args[0].(bson.A)
		if !ok {
			return fmt.Errorf("aggregate() takes a list of pipeline stages")
		}
		for i, v := range stages {
			if _, ok := v.(bson.D); !ok {
				return fmt.Errorf("aggregate() stage %d is not a document", i)
			}
		}
		return nil
	case MethodDistinct:
		if n < 1 || n > 2 {
			return fmt.Errorf("distinct() takes a field name and an optional filter")
		}
		if _, ok := op.Args[0].(string); !ok {
			return fmt.Errorf("distinct() field name must be a string")
		}
		if n == 2 {
			if _, ok := op.Args[1].(bson.D); !ok {
				return fmt.Errorf("distinct() filter must be a document")
			}
		}
		return nil
	case MethodUpdateOne, MethodUpdateMany, MethodReplaceOne:
		if n < 2 || n > 3 {
			return fmt.Errorf("%s() takes a filter, an update and optional options", op.Method)
		}
		if _, ok := op.Args[0].(bson.D); !ok {
			return fmt.Errorf("%s() filter must be a document", op.Method)
		}
		switch op.Args[1].(type) {
		case bson.D:
		case bson.A:
			if op.Method == MethodReplaceOne {
				return fmt.Errorf("replace_one() replacement must be a document")
			}
		default:
			return fmt.Errorf("%s() update must be a document", op.Method)
		}
		if n == 3 {
			opts, ok := op.Args[2].(bson.D)
			if !ok {
				return fmt.Errorf("%s() options must be a document", op.Method)
			}
			if op.Options == nil {
				op.Options = make(map[string]any)
			}
			for _, e := range opts {
				op.Options[e.Key] = e.Value
			}
			op.Args = op.Args[:2]
		}
		return nil
	}
	return fmt.Errorf("unsupported method %q", op.Method)
}

func allDocs(op *Operation) error {
	for i, v := range op.Args {
		if _, ok := v.(bson.D); !ok {
			return fmt.Errorf("%s() argument %d must be a document", op.Method, i+1)
		}
	}
	return nil
}

// applyModifier records a cursor modifier on a find operation.
func applyModifier(op *Operation, name string, args []any) error {
	switch name {
	case "sort":
		sort, err := sortSpec(args)
		if err != nil {
			return err
		}
		op.Sort = append(op.Sort, sort...)
		return nil
	case "limit", "skip":
		if len(args) != 1 {
			return fmt.Errorf("%s() takes one integer", name)
		}
		n, ok := toInt64(args[0])
		if !ok || n < 0 {
			return fmt.Errorf("%s() takes a non-negative integer", name)
		}
		if name == "limit" {
			op.Limit = &n
		} else {
			op.Skip = &n
		}
		return nil
	}
	return fmt.Errorf("unsupported cursor method %q", name)
}

// sortSpec accepts sort({field: 1}), sort("field", -1), sort("field") and
// sort([["a", 1], ["b", -1]]).
func sortSpec(args []any) (bson.D, error) {
	switch len(args) {
	case 1:
		switch v := args[0].(type) {
		case bson.D:
			for _, e := range v {
				if _, ok := toInt64(e.Value); !ok {
					return nil, fmt.Errorf("sort direction for %q must be 1 or -1", e.Key)
				}
			}
			return v, nil
		case string:
			return bson.D{{Key: v, Value: int32(1)}}, nil
		case bson.A:
			var out bson.D
			for _, item := range v {
				pair, ok := item.(bson.A)
				if !ok || len(pair) != 2 {
					return nil, fmt.Errorf("sort() list items must be [field, direction] pairs")
				}
				field, ok := pair[0].(string)
				dir, okDir := toInt64(pair[1])
				if !ok || !okDir {
					return nil, fmt.Errorf("sort() list items must be [field, direction] pairs")
				}
				out = append(out, bson.E{Key: field, Value: int32(dir)})
			}
			return out, nil
		}
	case 2:
		field, ok := args[0].(string)
		dir, okDir := toInt64(args[1])
		if ok && okDir {
			return bson.D{{Key: field, Value: int32(dir)}}, nil
		}
	}
	return nil, fmt.Errorf("sort() takes a document, or a field name and a direction")
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
