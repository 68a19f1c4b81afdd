package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

// ListingQuery narrows ListListings; nil fields are not filtered on.
type ListingQuery struct {
	SellerID *string
	Sold     *bool
	Category *string
}

type CreateListingInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Title       string          `json:"title" validate:"-"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"gt=0,lte=9999999999.99"`
	Quantity    *int            `json:"quantity" validate:"omitempty,gte=0"`
	Category    string          `json:"category" validate:"omitempty,oneof=decor clothing school-supplies tickets miscellaneous"`
}

// EditListingInput is a partial edit. Identity and ownership columns are
// not editable and are ignored if sent.
type EditListingInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Title       *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gt=0,lte=9999999999.99"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
	Category    *string          `json:"category" validate:"omitempty,oneof=decor clothing school-supplies tickets miscellaneous"`
	Sold        *bool            `json:"sold"`
}

// trimmed strips surrounding whitespace from the text fields so blank
// names fail validation.
func (in EditListingInput) trimmed() EditListingInput {
	for _, f := range []**string{&in.Name, &in.Title, &in.Description} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	return in
}

func (in EditListingInput) patch() market.ListingPatch {
	name := in.Name
	if name == nil {
		name = in.Title
	}
	return market.ListingPatch{
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Category:    in.Category,
		Sold:        in.Sold,
	}
}

func (s *Service) ListListings(ctx context.Context, q ListingQuery) ([]market.Listing, error) {
	f := store.Filters{}
	if q.SellerID != nil {
		f[market.FieldSellerID] = *q.SellerID
	}
	if q.Sold != nil {
		col, val := s.Repo.Schema.SoldFilter(*q.Sold)
		f[col] = val
	}
	if q.Category != nil {
		f[market.FieldCategory] = *q.Category
	}
	return s.Repo.ListListings(ctx, f)
}

func (s *Service) GetListing(ctx context.Context, id string) (market.Listing, error) {
	l, err := s.Repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, market.ErrListingNotFound
	}
	return l, nil
}

// CreateListing stores a new unsold listing owned by caller.
func (s *Service) CreateListing(ctx context.Context, caller string, in CreateListingInput) (market.Listing, error) {
	if in.Name == "" {
		in.Name = in.Title
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in, market.ErrInvalidPayload); err != nil {
		return nil, err
	}
	if err := checkCents(in.Price); err != nil {
		return nil, err
	}

	draft := market.ListingDraft{
		SellerID:    caller,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    1,
		Category:    in.Category,
	}
	if in.Quantity != nil {
		draft.Quantity = *in.Quantity
	}
	if draft.Category == "" {
		draft.Category = market.DefaultCategory
	}

	l, err := s.Repo.CreateListing(ctx, s.Repo.Schema.ListingRow(draft))
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("listing created", "listing_id", l.ID(), "seller_id", caller)
	return l, nil
}

// EditListing applies a partial edit on behalf of the listing's seller. An
// edit with no recognized fields returns the listing untouched.
func (s *Service) EditListing(ctx context.Context, caller, id string, in EditListingInput) (market.Listing, error) {
	current, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	in = in.trimmed()
	p := in.patch()
	if p.Empty() {
		return current, nil
	}
	if err := check(in, market.ErrInvalidPayload); err != nil {
		return nil, err
	}
	if in.Price != nil {
		if err := checkCents(*in.Price); err != nil {
			return nil, err
		}
	}

	l, err := s.Repo.UpdateListing(ctx, id, s.Repo.Schema.PatchRow(p))
	if errors.Is(err, store.ErrNotFound) {
		return nil, market.ErrListingNotFound
	}
	return l, err
}

func (s *Service) DeleteListing(ctx context.Context, caller, id string) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteListing(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("listing deleted", "listing_id", id, "seller_id", caller)
	return nil
}

// owned resolves id and checks that caller sells it.
func (s *Service) owned(ctx context.Context, caller, id string) (market.Listing, error) {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.SellerID() != caller {
		return nil, market.ErrNotOwner
	}
	return l, nil
}
