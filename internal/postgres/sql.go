package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

var (
	errNoFilters       = errors.New("refusing to modify without filters")
	errEmbeddedFilter  = errors.New("embedded filters are only supported on select")
	errUnknownEmbed    = errors.New("filter references an unknown embed")
	errEmptyAssignment = errors.New("no columns to write")
)

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

// statement is a rendered SQL text with its positional arguments.
type statement struct {
	sql  string
	args []any
}

func (s *statement) arg(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

// projection renders every returned row as one jsonb document, the embed
// attached under its alias.
func projection(q store.Query, base string) string {
	if q.Embed == nil {
		return "to_jsonb(" + base + ")"
	}
	return fmt.Sprintf("to_jsonb(%s) || jsonb_build_object(%s, to_jsonb(e))", base, quoteLiteral(q.Embed.Alias))
}

func joinClause(q store.Query, base string) string {
	if q.Embed == nil {
		return ""
	}
	kind := "LEFT JOIN"
	if q.HasEmbeddedFilter() {
		kind = "JOIN"
	}
	return fmt.Sprintf(" %s %s e ON e.%s = %s.%s",
		kind, ident(q.Embed.Table), ident(q.Embed.TargetKey), base, ident(q.Embed.ForeignKey))
}

// where renders the equality filters. Values compare as text so that ids
// arriving as strings match integer columns.
func where(st *statement, q store.Query, base string, allowEmbedded bool) (string, error) {
	conds := q.Filters.Conditions()
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		table := base
		if c.Embedded != "" {
			if !allowEmbedded {
				return "", errEmbeddedFilter
			}
			if q.Embed == nil || q.Embed.Alias != c.Embedded {
				return "", errUnknownEmbed
			}
			table = "e"
		}
		col := ident(c.Column)
		if table != "" {
			col = table + "." + col
		}
		parts = append(parts, fmt.Sprintf("%s::text = %s", col, st.arg(c.Value)))
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func buildSelect(q store.Query) (statement, error) {
	var st statement
	w, err := where(&st, q, "t", true)
	if err != nil {
		return statement{}, err
	}
	st.sql = fmt.Sprintf("SELECT %s FROM %s t%s%s", projection(q, "t"), ident(q.Table), joinClause(q, "t"), w)
	return st, nil
}

func buildInsert(q store.Query, row market.Record) (statement, error) {
	cols := sortedColumns(row)
	if len(cols) == 0 {
		return statement{}, errEmptyAssignment
	}
	var st statement
	names := make([]string, 0, len(cols))
	values := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, ident(c))
		values = append(values, st.arg(param(row[c])))
	}
	st.sql = fmt.Sprintf("WITH t AS (INSERT INTO %s (%s) VALUES (%s) RETURNING *) SELECT %s FROM t%s",
		ident(q.Table), strings.Join(names, ", "), strings.Join(values, ", "),
		projection(q, "t"), joinClause(store.Query{Embed: q.Embed}, "t"))
	return st, nil
}

func buildUpdate(q store.Query, row market.Record) (statement, error) {
	if len(q.Filters.Conditions()) == 0 {
		return statement{}, errNoFilters
	}
	cols := sortedColumns(row)
	if len(cols) == 0 {
		return statement{}, errEmptyAssignment
	}
	var st statement
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = %s", ident(c), st.arg(param(row[c]))))
	}
	w, err := where(&st, q, "", false)
	if err != nil {
		return statement{}, err
	}
	st.sql = fmt.Sprintf("WITH t AS (UPDATE %s SET %s%s RETURNING *) SELECT %s FROM t%s",
		ident(q.Table), strings.Join(sets, ", "), w,
		projection(q, "t"), joinClause(store.Query{Embed: q.Embed}, "t"))
	return st, nil
}

func buildDelete(q store.Query) (statement, error) {
	if len(q.Filters.Conditions()) == 0 {
		return statement{}, errNoFilters
	}
	var st statement
	w, err := where(&st, q, "", false)
	if err != nil {
		return statement{}, err
	}
	st.sql = fmt.Sprintf("DELETE FROM %s%s", ident(q.Table), w)
	return st, nil
}

func sortedColumns(row market.Record) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// param converts decoded JSON values into types pgx encodes natively.
func param(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
