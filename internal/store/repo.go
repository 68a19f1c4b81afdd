package store

import (
	"context"
	"errors"

	"github.com/georgesalomon/umarket2/internal/market"
)

// Repo runs listing and order operations against a Backend laid out as
// Schema, normalizing every row it returns.
type Repo struct {
	Backend Backend
	Schema  market.Schema
}

var errEmptyEcho = errors.New("store returned no representation")

// configurable is implemented by backends that can tell up front whether
// their endpoint and credentials are present.
type configurable interface {
	Configured() error
}

func (r *Repo) ensureConfigured() error {
	if r == nil || r.Backend == nil {
		return ErrNotConfigured
	}
	if c, ok := r.Backend.(configurable); ok {
		return c.Configured()
	}
	return nil
}

func (r *Repo) listingQuery(f Filters) Query {
	return Query{Table: r.Schema.ListingsTable, Filters: f}
}

func (r *Repo) orderQuery(f Filters) Query {
	return Query{
		Table:   r.Schema.OrdersTable,
		Filters: f,
		Embed: &Embed{
			Alias:      market.EmbedAlias,
			Table:      r.Schema.ListingsTable,
			ForeignKey: r.Schema.ListingRefField,
			TargetKey:  r.Schema.ListingIDField,
		},
	}
}

func (r *Repo) byListingID(id string) Filters {
	return Filters{r.Schema.ListingIDField: id}
}

func (r *Repo) byOrderID(id string) Filters {
	return Filters{r.Schema.OrderIDField: id}
}

func (r *Repo) ListListings(ctx context.Context, f Filters) ([]market.Listing, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Select(ctx, r.listingQuery(f))
	if err != nil {
		return nil, err
	}
	out := make([]market.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, market.NormalizeListing(row, r.Schema))
	}
	return out, nil
}

// GetListing returns nil, nil when no listing has the id.
func (r *Repo) GetListing(ctx context.Context, id string) (market.Listing, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Select(ctx, r.listingQuery(r.byListingID(id)))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return market.NormalizeListing(rows[0], r.Schema), nil
}

func (r *Repo) CreateListing(ctx context.Context, row market.Record) (market.Listing, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Insert(ctx, r.listingQuery(nil), row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "insert", Table: r.Schema.ListingsTable, Err: errEmptyEcho}
	}
	return market.NormalizeListing(rows[0], r.Schema), nil
}

// UpdateListing returns ErrNotFound when no row matched.
func (r *Repo) UpdateListing(ctx context.Context, id string, row market.Record) (market.Listing, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Update(ctx, r.listingQuery(r.byListingID(id)), row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return market.NormalizeListing(rows[0], r.Schema), nil
}

// DeleteListing succeeds whether or not the id exists.
func (r *Repo) DeleteListing(ctx context.Context, id string) error {
	if err := r.ensureConfigured(); err != nil {
		return err
	}
	return r.Backend.Delete(ctx, r.listingQuery(r.byListingID(id)))
}

func (r *Repo) ListOrders(ctx context.Context, f Filters) ([]market.Order, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Select(ctx, r.orderQuery(f))
	if err != nil {
		return nil, err
	}
	out := make([]market.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, market.NormalizeOrder(row, r.Schema))
	}
	return out, nil
}

// GetOrder returns nil, nil when no order has the id.
func (r *Repo) GetOrder(ctx context.Context, id string) (market.Order, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Select(ctx, r.orderQuery(r.byOrderID(id)))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return market.NormalizeOrder(rows[0], r.Schema), nil
}

func (r *Repo) CreateOrder(ctx context.Context, row market.Record) (market.Order, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Insert(ctx, r.orderQuery(nil), row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &StoreError{Op: "insert", Table: r.Schema.OrdersTable, Err: errEmptyEcho}
	}
	return market.NormalizeOrder(rows[0], r.Schema), nil
}

// UpdateOrder returns ErrNotFound when no row matched.
func (r *Repo) UpdateOrder(ctx context.Context, id string, row market.Record) (market.Order, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	rows, err := r.Backend.Update(ctx, r.orderQuery(r.byOrderID(id)), row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return market.NormalizeOrder(rows[0], r.Schema), nil
}
