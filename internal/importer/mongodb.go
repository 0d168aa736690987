// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"context"
	"fmt"

	"chatdb/cli/internal/docstore"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultBatchSize is the number of documents per InsertMany call.
const DefaultBatchSize = 1000

// Documents converts every row of t to a document with typed values. Empty
// cells are stored as null.
func Documents(t Table) []any {
	docs := make([]any, len(t.Rows))
	for i := range t.Rows {
		vals := t.Values(i)
		doc := make(bson.D, len(t.Columns))
		for c, col := range t.Columns {
			doc[c] = bson.E{Key: col, Value: vals[c]}
		}
		docs[i] = doc
	}
	return docs
}

// LoadCollection appends the rows of t to coll in batches and returns the
// number of documents inserted.
func LoadCollection(ctx context.Context, coll docstore.Collection, t Table, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	docs := Documents(t)
	inserted := 0
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		ids, err := coll.InsertMany(ctx, docs[start:end])
		if err != nil {
			return inserted, fmt.Errorf("insert into %s: %w", t.Name, err)
		}
		inserted += len(ids)
	}
	return inserted, nil
}
