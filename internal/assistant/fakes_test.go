// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import (
	"context"
	"errors"
)

// scriptedOracle replies with the queued replies in order and records prompts.
type scriptedOracle struct {
	replies []string
	errs    []error
	prompts []string
}

func (o *scriptedOracle) Complete(_ context.Context, prompt string) (string, error) {
	i := len(o.prompts)
	o.prompts = append(o.prompts, prompt)
	if i < len(o.errs) && o.errs[i] != nil {
		return "", o.errs[i]
	}
	if i < len(o.replies) {
		return o.replies[i], nil
	}
	return "", errors.New("scriptedOracle: no reply queued")
}

// scriptedBackend fails with errs[i] on call i, then succeeds with result.
type scriptedBackend struct {
	kind    BackendKind
	errs    []error
	result  Result
	queries []string
}

func (b *scriptedBackend) Kind() BackendKind { return b.kind }

func (b *scriptedBackend) Execute(_ context.Context, query string) (Result, error) {
	i := len(b.queries)
	b.queries = append(b.queries, query)
	if i < len(b.errs) && b.errs[i] != nil {
		return Result{}, b.errs[i]
	}
	return b.result, nil
}

// repairCall records one Repair invocation.
type repairCall struct {
	query   string
	errText string
	kind    BackendKind
}

// recordingRepairer returns fixes in order.
type recordingRepairer struct {
	fixes []string
	err   error
	calls []repairCall
}

func (r *recordingRepairer) Repair(_ context.Context, query, errText string, kind BackendKind) (string, error) {
	r.calls = append(r.calls, repairCall{query: query, errText: errText, kind: kind})
	if r.err != nil {
		return "", r.err
	}
	if i := len(r.calls) - 1; i < len(r.fixes) {
		return r.fixes[i], nil
	}
	return "", errors.New("recordingRepairer: no fix queued")
}

type fakeTable struct {
	columns []Column
	sample  string
}

// fakeInspector serves a fixed set of tables; err makes every call fail.
type fakeInspector struct {
	order  []string
	tables map[string]fakeTable
	err    error
	calls  int
}

func (f *fakeInspector) ListTables(context.Context, string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeInspector) DescribeColumns(_ context.Context, _, table string) ([]Column, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tables[table].columns, nil
}

func (f *fakeInspector) SampleRow(_ context.Context, _, table string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	s := f.tables[table].sample
	return s, s != "", nil
}

func shopInspector() *fakeInspector {
	return &fakeInspector{
		order: []string{"customers", "orders"},
		tables: map[string]fakeTable{
			"customers": {
				columns: []Column{
					{Name: "id", Type: "integer", PrimaryKey: true, AutoIncrement: true},
					{Name: "name", Type: "text", Nullable: true},
				},
			},
			"orders": {
				columns: []Column{
					{Name: "id", Type: "bigint", PrimaryKey: true, AutoIncrement: true},
					{Name: "customer_id", Type: "integer"},
					{Name: "total", Type: "numeric", Nullable: true},
				},
				sample: `{"id": 1, "customer_id": 7, "total": 19.5}`,
			},
		},
	}
}
