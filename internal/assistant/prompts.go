// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import "strings"

const classifyPrompt = `You are a database assistant.

Given this user input: "{{input}}"

Classify it into one of the following commands:
- list: if the user wants to list available databases.
- switch: if the user wants to switch between SQL and MongoDB. The target is "sql" or "mongodb".
- select: if the user wants to use or switch to a specific database. The target is the database name.
- query: if the user is asking a natural language question or change to be converted to SQL or MongoDB. The target is the request itself.
- schema_tables: if the user wants to view only the tables/collections in a database.
- schema_columns: if the user wants to view only the columns/attributes of a specific table/collection. The target is the table/collection name.
- schema_sample: if the user wants to view only a sample row from a specific table/collection. The target is the table/collection name.
- schema: if the user wants to view the complete schema of a database.
- exit: if the user wants to quit.

If you are unsure or the input does not fit any category, respond with:
{"command": "unknown", "target": ""}

Respond ONLY in this JSON format:
{"command": "COMMAND", "target": "EXTRACTED_TARGET_OR_QUERY"}
`

const synthesizePrompt = `You are a database assistant. Convert this natural language request into a {{dialect}} query.

Database Schema:
{{schema}}

Natural Language Request:
{{request}}

Return ONLY the query and nothing else, inside triple backticks tagged with '{{tag}}'.
{{examples}}`

const sqlExamples = `Use PostgreSQL syntax and a single statement. For example:
- Point query: SELECT * FROM customers WHERE email = 'ada@example.com'
- Aggregation: SELECT status, COUNT(*) AS orders FROM orders GROUP BY status ORDER BY orders DESC
- Update one row: UPDATE customers SET city = 'Paris' WHERE id = 7
- Update many rows: UPDATE orders SET status = 'shipped' WHERE status = 'packed'
- Insert one row: INSERT INTO customers (name, city) VALUES ('Ada', 'London')
- Insert many rows: INSERT INTO customers (name, city) VALUES ('Ada', 'London'), ('Alan', 'Wilmslow')
- Delete: DELETE FROM orders WHERE created_at < '2020-01-01'
Quote identifiers that contain capitals or spaces with double quotes.
`

const mongoExamples = `Use this MongoDB syntax, one operation per query. For example:
- Point query: db.collection.find({"field": "value"})
- Sorted and limited: db.collection.find({"field": "value"}).sort({"other": -1}).limit(5)
- Aggregation: db.collection.aggregate([
    {"$match": {"field": "value"}},
    {"$group": {"_id": "$field", "count": {"$sum": 1}}}
  ])
- Count: db.collection.count_documents({"field": "value"})
- Update one document:
  db.collection.update_one(
    {"field": "value"},
    {"$set": {"field": "new_value"}}
  )
- Update many documents:
  db.collection.update_many(
    {"field": "value"},
    {"$set": {"field": "new_value"}}
  )
- Insert one document: db.collection.insert_one({"field": "value"})
- Insert many documents:
  db.collection.insert_many([
    {"field": "value1"},
    {"field": "value2"}
  ])
- Delete: db.collection.delete_one({"field": "value"})
Values may use ObjectId("..."), ISODate("2024-01-31T00:00:00Z"), true, false and null.
To run several operations in order, put them in one list separated by commas:
[
  db.collection.insert_one({"field": "value"}),
  db.collection.delete_many({"field": "old"})
]
`

const repairPrompt = `You are a database assistant. Fix this {{dialect}} query that resulted in an error.

Original Query:
{{query}}

Error Message:
{{error}}

Return ONLY the fixed query and nothing else, inside triple backticks tagged with '{{tag}}'.
{{hint}}`

const sqlRepairHint = "Use PostgreSQL syntax and a single statement.\n"

const mongoRepairHint = "Use the MongoDB syntax db.collection.method(...), for example db.users.find() or db.users.aggregate([...]). Wrap several operations in [ ... ] separated by commas.\n"

// BuildClassifyPrompt renders the classification prompt for one user turn.
func BuildClassifyPrompt(input string) string {
	return strings.NewReplacer("{{input}}", input).Replace(classifyPrompt)
}

// BuildSynthesizePrompt renders the query synthesis prompt.
func BuildSynthesizePrompt(request string, kind BackendKind, schema string) string {
	if strings.TrimSpace(schema) == "" {
		schema = "(no database selected)"
	}
	examples := sqlExamples
	if kind == BackendMongo {
		examples = mongoExamples
	}
	return strings.NewReplacer(
		"{{dialect}}", kind.Dialect(),
		"{{schema}}", schema,
		"{{request}}", request,
		"{{tag}}", codeTag(kind),
		"{{examples}}", examples,
	).Replace(synthesizePrompt)
}

// BuildRepairPrompt renders the repair prompt. It never embeds the schema.
func BuildRepairPrompt(query, errText string, kind BackendKind) string {
	hint := sqlRepairHint
	if kind == BackendMongo {
		hint = mongoRepairHint
	}
	return strings.NewReplacer(
		"{{dialect}}", kind.Dialect(),
		"{{query}}", query,
		"{{error}}", errText,
		"{{tag}}", codeTag(kind),
		"{{hint}}", hint,
	).Replace(repairPrompt)
}

func codeTag(kind BackendKind) string {
	if kind == BackendMongo {
		return "mongodb"
	}
	return "sql"
}
