// Package storetest provides an in-memory store.Backend for tests.
package storetest

import (
	"context"
	"sync"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Memory is a mutex-guarded Backend. Writes are atomic with respect to
// their filters, so conditional updates behave like the real stores.
type Memory struct {
	mu       sync.Mutex
	tables   map[string][]market.Record
	idFields map[string]string
	nextID   map[string]int64
	calls    map[string]int
	failNext map[string]error
}

// NewMemory returns an empty backend that assigns ids the way schema s
// names them.
func NewMemory(s market.Schema) *Memory {
	return &Memory{
		tables: map[string][]market.Record{},
		idFields: map[string]string{
			s.ListingsTable: s.ListingIDField,
			s.OrdersTable:   s.OrderIDField,
		},
		nextID:   map[string]int64{},
		calls:    map[string]int{},
		failNext: map[string]error{},
	}
}

// Seed appends rows to table as given, ids included.
func (m *Memory) Seed(table string, rows ...market.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.tables[table] = append(m.tables[table], row.Clone())
	}
}

// Rows returns a copy of the rows currently in table.
func (m *Memory) Rows(table string) []market.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]market.Record, 0, len(m.tables[table]))
	for _, row := range m.tables[table] {
		out = append(out, row.Clone())
	}
	return out
}

// Calls reports how many times op ran.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls reports how many operations of any kind ran.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// FailNext makes the next call of op return err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[op] = err
}

func (m *Memory) begin(op string) error {
	m.calls[op]++
	if err, ok := m.failNext[op]; ok {
		delete(m.failNext, op)
		return err
	}
	return nil
}

func (m *Memory) Select(_ context.Context, q store.Query) ([]market.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpSelect); err != nil {
		return nil, err
	}
	out := []market.Record{}
	for _, row := range m.tables[q.Table] {
		if res, ok := m.project(q, row); ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *Memory) Insert(_ context.Context, q store.Query, row market.Record) ([]market.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpInsert); err != nil {
		return nil, err
	}
	stored := row.Clone()
	if idField := m.idField(q.Table); stored[idField] == nil {
		m.nextID[q.Table]++
		stored[idField] = m.nextID[q.Table]
	}
	m.tables[q.Table] = append(m.tables[q.Table], stored)
	res, _ := m.project(store.Query{Table: q.Table, Embed: q.Embed}, stored)
	return []market.Record{res}, nil
}

func (m *Memory) Update(_ context.Context, q store.Query, patch market.Record) ([]market.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUpdate); err != nil {
		return nil, err
	}
	out := []market.Record{}
	for _, row := range m.tables[q.Table] {
		if _, ok := m.project(q, row); !ok {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		res, _ := m.project(store.Query{Table: q.Table, Embed: q.Embed}, row)
		out = append(out, res)
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, q store.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDelete); err != nil {
		return err
	}
	kept := m.tables[q.Table][:0]
	for _, row := range m.tables[q.Table] {
		if _, ok := m.project(q, row); !ok {
			kept = append(kept, row)
		}
	}
	m.tables[q.Table] = kept
	return nil
}

func (m *Memory) idField(table string) string {
	if f, ok := m.idFields[table]; ok && f != "" {
		return f
	}
	return market.FieldID
}

// project returns row with its embed attached and reports whether it
// satisfies every filter of q.
func (m *Memory) project(q store.Query, row market.Record) (market.Record, bool) {
	out := row.Clone()
	var embedded market.Record
	if q.Embed != nil {
		embedded = m.lookup(q.Embed, row)
		if embedded != nil {
			out[q.Embed.Alias] = map[string]any(embedded)
		} else {
			out[q.Embed.Alias] = nil
		}
	}
	for _, c := range q.Filters.Conditions() {
		target := row
		if c.Embedded != "" {
			if q.Embed == nil || c.Embedded != q.Embed.Alias || embedded == nil {
				return nil, false
			}
			target = embedded
		}
		v, ok := target[c.Column]
		if !ok || v == nil || store.FormatValue(v) != c.Value {
			return nil, false
		}
	}
	return out, true
}

func (m *Memory) lookup(e *store.Embed, row market.Record) market.Record {
	ref := row[e.ForeignKey]
	if ref == nil {
		return nil
	}
	want := store.FormatValue(ref)
	for _, cand := range m.tables[e.Table] {
		if v, ok := cand[e.TargetKey]; ok && store.FormatValue(v) == want {
			return cand.Clone()
		}
	}
	return nil
}
