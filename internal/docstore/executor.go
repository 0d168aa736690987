// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package docstore

import (
	"context"
	"fmt"
	"strings"

	"chatdb/cli/internal/assistant"
	apperr "chatdb/cli/internal/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Catalog is the server: its databases.
type Catalog interface {
	ListDatabaseNames(ctx context.Context) ([]string, error)
	Database(name string) Database
}

// Database is one MongoDB database.
type Database interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	Collection(name string) Collection
}

// UpdateResult mirrors the counters of a driver update result.
type UpdateResult struct {
	Matched    int64
	Modified   int64
	UpsertedID any
}

// Collection is the subset of collection calls scripts may make. Cursors are
// drained by the implementation.
type Collection interface {
	Find(ctx context.Context, filter any, opts *options.FindOptions) ([]bson.Raw, error)
	FindOne(ctx context.Context, filter any, opts *options.FindOneOptions) (bson.Raw, bool, error)
	Aggregate(ctx context.Context, pipeline bson.A) ([]bson.Raw, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	Distinct(ctx context.Context, field string, filter any) ([]any, error)
	InsertOne(ctx context.Context, doc any) (any, error)
	InsertMany(ctx context.Context, docs []any) ([]any, error)
	UpdateOne(ctx context.Context, filter, update any, upsert bool) (UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update any, upsert bool) (UpdateResult, error)
	ReplaceOne(ctx context.Context, filter, replacement any, upsert bool) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter any) (int64, error)
	DeleteMany(ctx context.Context, filter any) (int64, error)
}

// Run executes script against db in order. A failing operation stops the run;
// operations already applied stay applied.
func Run(ctx context.Context, db Database, script Script) (assistant.Result, error) {
	var out assistant.Result
	for i, op := range script.Ops {
		res, err := runOp(ctx, db.Collection(op.Collection), op)
		if err != nil {
			msg := fmt.Sprintf("%s.%s failed", op.Collection, op.Method)
			if script.Batch {
				msg = fmt.Sprintf("operation %d (%s)", i+1, msg)
			}
			return assistant.Result{}, apperr.Wrap(apperr.QueryFailed, msg, err)
		}
		if script.Batch {
			for j, line := range res.Summary {
				res.Summary[j] = fmt.Sprintf("Operation %d: %s", i+1, line)
			}
		}
		out.Documents = append(out.Documents, res.Documents...)
		out.Summary = append(out.Summary, res.Summary...)
	}
	return out, nil
}

func runOp(ctx context.Context, coll Collection, op Operation) (assistant.Result, error) {
	switch op.Method {
	case MethodFind:
		opts := options.Find()
		if len(op.Args) > 1 {
			opts.SetProjection(op.Args[1])
		}
		if len(op.Sort) > 0 {
			opts.SetSort(op.Sort)
		}
		if op.Limit != nil {
			opts.SetLimit(*op.Limit)
		}
		if op.Skip != nil {
			opts.SetSkip(*op.Skip)
		}
		docs, err := coll.Find(ctx, filterArg(op.Args), opts)
		if err != nil {
			return assistant.Result{}, err
		}
		return documents(docs)

	case MethodFindOne:
		opts := options.FindOne()
		if len(op.Args) > 1 {
			opts.SetProjection(op.Args[1])
		}
		doc, ok, err := coll.FindOne(ctx, filterArg(op.Args), opts)
		if err != nil || !ok {
			return assistant.Result{}, err
		}
		return documents([]bson.Raw{doc})

	case MethodAggregate:
		docs, err := coll.Aggregate(ctx, op.Args[0].(bson.A))
		if err != nil {
			return assistant.Result{}, err
		}
		return documents(docs)

	case MethodCountDocuments:
		n, err := coll.CountDocuments(ctx, filterArg(op.Args))
		if err != nil {
			return assistant.Result{}, err
		}
		return summary(fmt.Sprintf("Counted %d document(s)", n)), nil

	case MethodDistinct:
		var filter any = bson.D{}
		if len(op.Args) > 1 {
			filter = op.Args[1]
		}
		values, err := coll.Distinct(ctx, op.Args[0].(string), filter)
		if err != nil {
			return assistant.Result{}, err
		}
		var res assistant.Result
		for _, v := range values {
			text, err := renderValue(v)
			if err != nil {
				return assistant.Result{}, err
			}
			res.Documents = append(res.Documents, text)
		}
		return res, nil

	case MethodInsertOne:
		id, err := coll.InsertOne(ctx, op.Args[0])
		if err != nil {
			return assistant.Result{}, err
		}
		return summary("Document inserted with ID: " + idString(id)), nil

	case MethodInsertMany:
		ids, err := coll.InsertMany(ctx, []any(op.Args[0].(bson.A)))
		if err != nil {
			return assistant.Result{}, err
		}
		texts := make([]string, len(ids))
		for i, id := range ids {
			texts[i] = idString(id)
		}
		return summary("Documents inserted with IDs: [" + strings.Join(texts, ", ") + "]"), nil

	case MethodUpdateOne, MethodUpdateMany, MethodReplaceOne:
		upsert := truthy(op.Options["upsert"])
		var (
			res UpdateResult
			err error
		)
		switch op.Method {
		case MethodUpdateOne:
			res, err = coll.UpdateOne(ctx, op.Args[0], op.Args[1], upsert)
		case MethodUpdateMany:
			res, err = coll.UpdateMany(ctx, op.Args[0], op.Args[1], upsert)
		default:
			res, err = coll.ReplaceOne(ctx, op.Args[0], op.Args[1], upsert)
		}
		if err != nil {
			return assistant.Result{}, err
		}
		out := summary(fmt.Sprintf("Modified %d document(s)", res.Modified))
		if res.UpsertedID != nil {
			out.Summary = append(out.Summary, "Upserted document with ID: "+idString(res.UpsertedID))
		}
		return out, nil

	case MethodDeleteOne, MethodDeleteMany:
		var (
			n   int64
			err error
		)
		if op.Method == MethodDeleteOne {
			n, err = coll.DeleteOne(ctx, op.Args[0])
		} else {
			n, err = coll.DeleteMany(ctx, op.Args[0])
		}
		if err != nil {
			return assistant.Result{}, err
		}
		return summary(fmt.Sprintf("Deleted %d document(s)", n)), nil
	}
	return assistant.Result{}, fmt.Errorf("unsupported method %q", op.Method)
}

func filterArg(args []any) any {
	if len(args) == 0 {
		return bson.D{}
	}
	return args[0]
}

func summary(line string) assistant.Result {
	return assistant.Result{Summary: []string{line}}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int32:
		return b != 0
	case int64:
		return b != 0
	}
	return false
}

func documents(raws []bson.Raw) (assistant.Result, error) {
	var res assistant.Result
	for _, raw := range raws {
		text, err := RenderDocument(raw)
		if err != nil {
			return assistant.Result{}, err
		}
		res.Documents = append(res.Documents, text)
	}
	return res, nil
}

// RenderDocument renders raw as indented relaxed Extended JSON with ObjectIDs
// shown as hex strings.
func RenderDocument(raw bson.Raw) (string, error) {
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode document: %w", err)
	}
	out, err := bson.MarshalExtJSONIndent(hexIDs(doc), false, false, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return string(out), nil
}

// renderValue renders a single value the way it would appear inside a document.
func renderValue(v any) (string, error) {
	out, err := bson.MarshalExtJSON(bson.D{{Key: "_v", Value: hexIDs(v)}}, false, false)
	if err != nil {
		return "", fmt.Errorf("render value: %w", err)
	}
	text := strings.TrimPrefix(string(out), `{"_v":`)
	return strings.TrimSuffix(text, "}"), nil
}

// hexIDs replaces ObjectIDs with their hex form, recursively.
func hexIDs(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: hexIDs(e.Value)}
		}
		return out
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = hexIDs(e)
		}
		return out
	}
	return v
}

func idString(id any) string {
	switch t := id.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	}
	text, err := renderValue(id)
	if err != nil {
		return fmt.Sprint(id)
	}
	return text
}
