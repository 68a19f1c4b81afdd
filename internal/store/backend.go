package store

import (
	"context"
	"sort"
	"strings"

	"github.com/georgesalomon/umarket2/internal/market"
)

// Backend is the tabular contract both store implementations speak.
type Backend interface {
	Select(ctx context.Context, q Query) ([]market.Record, error)
	Insert(ctx context.Context, q Query, row market.Record) ([]market.Record, error)
	// Update applies row to every match and echoes the updated rows. An
	// empty result means nothing matched.
	Update(ctx context.Context, q Query, row market.Record) ([]market.Record, error)
	Delete(ctx context.Context, q Query) error
}

// Query addresses the rows of Table matching every filter.
type Query struct {
	Table   string
	Filters Filters
	Embed   *Embed
}

// Embed joins the row of Table whose TargetKey equals this row's ForeignKey,
// returned under Alias.
type Embed struct {
	Alias      string
	Table      string
	ForeignKey string
	TargetKey  string
}

// HasEmbeddedFilter reports whether any filter targets the embedded row,
// which turns the embed into an inner join.
func (q Query) HasEmbeddedFilter() bool {
	if q.Embed == nil {
		return false
	}
	for _, c := range q.Filters.Conditions() {
		if c.Embedded == q.Embed.Alias {
			return true
		}
	}
	return false
}

// Filters maps column to required value. A key of the form "alias.column"
// filters on the embedded row. nil values are skipped.
type Filters map[string]any

// Condition is one equality filter, its value already rendered.
type Condition struct {
	// Embedded is the embed alias the column belongs to, empty for the
	// base row.
	Embedded string
	Column   string
	Value    string
}

// Key renders the condition's column the way PostgREST addresses it.
func (c Condition) Key() string {
	if c.Embedded == "" {
		return c.Column
	}
	return c.Embedded + "." + c.Column
}

// Conditions returns the non-nil filters sorted by key.
func (f Filters) Conditions() []Condition {
	out := make([]Condition, 0, len(f))
	for k, v := range f {
		if v == nil {
			continue
		}
		c := Condition{Column: k, Value: FormatValue(v)}
		if alias, col, ok := strings.Cut(k, "."); ok {
			c.Embedded, c.Column = alias, col
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// FormatValue renders a filter value; booleans render lowercase.
func FormatValue(v any) string {
	return market.Stringify(v)
}
