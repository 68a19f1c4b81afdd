package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

// DB is the subset of *pgxpool.Pool the backend needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Backend implements store.Backend directly against PostgreSQL, returning
// rows in the same JSON shape PostgREST would.
type Backend struct{ DB DB }

func (b *Backend) Configured() error {
	if b == nil || b.DB == nil {
		return store.ErrNotConfigured
	}
	return nil
}

func (b *Backend) Select(ctx context.Context, q store.Query) ([]market.Record, error) {
	st, err := buildSelect(q)
	if err != nil {
		return nil, &store.StoreError{Op: "select", Table: q.Table, Status: http.StatusBadRequest, Err: err}
	}
	return b.query(ctx, "select", q.Table, st)
}

func (b *Backend) Insert(ctx context.Context, q store.Query, row market.Record) ([]market.Record, error) {
	st, err := buildInsert(q, row)
	if err != nil {
		return nil, &store.StoreError{Op: "insert", Table: q.Table, Status: http.StatusBadRequest, Err: err}
	}
	return b.query(ctx, "insert", q.Table, st)
}

func (b *Backend) Update(ctx context.Context, q store.Query, row market.Record) ([]market.Record, error) {
	st, err := buildUpdate(q, row)
	if err != nil {
		return nil, &store.StoreError{Op: "update", Table: q.Table, Status: http.StatusBadRequest, Err: err}
	}
	return b.query(ctx, "update", q.Table, st)
}

func (b *Backend) Delete(ctx context.Context, q store.Query) error {
	if err := b.Configured(); err != nil {
		return err
	}
	st, err := buildDelete(q)
	if err != nil {
		return &store.StoreError{Op: "delete", Table: q.Table, Status: http.StatusBadRequest, Err: err}
	}
	if _, err := b.DB.Exec(ctx, st.sql, st.args...); err != nil {
		return storeError("delete", q.Table, err)
	}
	return nil
}

func (b *Backend) query(ctx context.Context, op, table string, st statement) ([]market.Record, error) {
	if err := b.Configured(); err != nil {
		return nil, err
	}
	rows, err := b.DB.Query(ctx, st.sql, st.args...)
	if err != nil {
		return nil, storeError(op, table, err)
	}
	defer rows.Close()

	out := []market.Record{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, storeError(op, table, err)
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, storeError(op, table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, table, err)
	}
	return out, nil
}

func decodeRecord(doc []byte) (market.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var rec market.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return rec, nil
}

// storeError classifies a database failure the way PostgREST reports it.
func storeError(op, table string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return &store.StoreError{Op: op, Table: table, Err: err}
	}
	return &store.StoreError{
		Op:     op,
		Table:  table,
		Status: statusForCode(pgErr.Code),
		Body:   pgErr.Message,
		Err:    err,
	}
}

func statusForCode(code string) int {
	if len(code) < 2 {
		return http.StatusInternalServerError
	}
	switch code[:2] {
	case "23":
		return http.StatusConflict
	case "22", "42":
		return http.StatusBadRequest
	case "28":
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
