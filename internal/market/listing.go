package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to listings stored without a category.
const DefaultCategory = "miscellaneous"

// Categories are the slugs a listing may be filed under.
var Categories = []string{"decor", "clothing", "school-supplies", "tickets", DefaultCategory}

// Listing is a normalized listing row. It stays a map so that columns a
// backing variant adds pass through to clients untouched.
type Listing map[string]any

func (l Listing) ID() string       { return Stringify(l[FieldID]) }
func (l Listing) SellerID() string { return Stringify(l[FieldSellerID]) }
func (l Listing) Name() string     { return Stringify(l[FieldName]) }
func (l Listing) Category() string { return Stringify(l[FieldCategory]) }

// Quantity reports the stock count when the variant stores it as an integer.
func (l Listing) Quantity() (int, bool) {
	return intValue(l[FieldQuantity])
}

// Sold reports the sold flag. A missing or non-boolean flag reads as unsold.
func (l Listing) Sold() bool {
	sold, _ := l[FieldSold].(bool)
	return sold
}

// Price reports the decimal price, derived from price_cents when needed.
func (l Listing) Price() (decimal.Decimal, bool) {
	if f, ok := floatValue(l[FieldPrice]); ok {
		return decimal.NewFromFloat(f), true
	}
	if cents, ok := intValue(l[FieldPriceCents]); ok {
		return decimal.New(int64(cents), -2), true
	}
	return decimal.Zero, false
}

// PriceCents reports the price in minor units.
func (l Listing) PriceCents() (int64, bool) {
	if cents, ok := intValue(l[FieldPriceCents]); ok {
		return int64(cents), true
	}
	if p, ok := l.Price(); ok {
		return toCents(p), true
	}
	return 0, false
}

// ListingDraft is a validated listing about to be inserted.
type ListingDraft struct {
	SellerID    string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
}

// ListingPatch carries the fields an edit supplied; nil means untouched.
type ListingPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	Category    *string
	Sold        *bool
}

// Empty reports whether the patch touches nothing.
func (p ListingPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.Quantity == nil && p.Category == nil && p.Sold == nil
}

// ID is a listing or order reference as clients send it: a JSON string or
// number, kept as its string form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	*id = ID(strings.Trim(s, `"`))
	return nil
}

func (id ID) String() string { return string(id) }

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
