package store

import (
	"context"

	"github.com/georgesalomon/umarket2/internal/market"
)

// ClaimStock takes one unit of l's stock with a conditional update that
// only matches while the row still holds the quantity that was read. The
// last unit also marks the listing sold. A listing whose quantity is not an
// integer is claimed whole by flipping it to sold.
//
// ErrConflict means another writer changed the row first; the caller should
// re-read and decide again.
func (r *Repo) ClaimStock(ctx context.Context, l market.Listing) (market.Listing, error) {
	if err := r.ensureConfigured(); err != nil {
		return nil, err
	}
	filters := r.byListingID(l.ID())
	patch := market.Record{}

	if qty, ok := l.Quantity(); ok {
		filters[market.FieldQuantity] = qty
		next := qty - 1
		if next < 0 {
			next = 0
		}
		patch[market.FieldQuantity] = next
		if next == 0 {
			r.Schema.PutSold(patch, true)
		}
	} else {
		col, val := r.Schema.SoldFilter(false)
		filters[col] = val
		r.Schema.PutSold(patch, true)
	}

	rows, err := r.Backend.Update(ctx, r.listingQuery(filters), patch)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrConflict
	}
	return market.NormalizeListing(rows[0], r.Schema), nil
}

// ReleaseStock undoes a claim, restoring previous only while the row is
// still in the claimed state.
func (r *Repo) ReleaseStock(ctx context.Context, claimed, previous market.Listing) error {
	if err := r.ensureConfigured(); err != nil {
		return err
	}
	filters := r.byListingID(claimed.ID())
	patch := market.Record{}

	if qty, ok := claimed.Quantity(); ok {
		filters[market.FieldQuantity] = qty
		if prev, ok := previous.Quantity(); ok {
			patch[market.FieldQuantity] = prev
		}
	} else {
		col, val := r.Schema.SoldFilter(true)
		filters[col] = val
	}
	r.Schema.PutSold(patch, previous.Sold())

	rows, err := r.Backend.Update(ctx, r.listingQuery(filters), patch)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrConflict
	}
	return nil
}
