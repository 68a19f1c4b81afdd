package market

import (
	"fmt"
)

// Schema describes one backing layout of the listings/orders pair.
type Schema struct {
	Name string

	ListingsTable  string
	ListingIDField string
	OrdersTable    string
	OrderIDField   string

	// ListingRefField is the order column referencing a listing.
	ListingRefField string
	// NameField holds the listing's display name.
	NameField string
	// MinorUnits stores prices and amounts as integer cents.
	MinorUnits bool
	// SoldAsStatus stores the sold flag as status=available|sold.
	SoldAsStatus bool
}

const (
	listingAvailable = "available"
	listingSold      = "sold"
)

// Catalog is the flat Product/Transactions layout with decimal prices.
var Catalog = Schema{
	Name:            "catalog",
	ListingsTable:   "Product",
	ListingIDField:  "prod_id",
	OrdersTable:     "Transactions",
	OrderIDField:    "id",
	ListingRefField: "prod_id",
	NameField:       FieldName,
}

// Relational is the listings/orders layout with prices in cents.
var Relational = Schema{
	Name:            "relational",
	ListingsTable:   "listings",
	ListingIDField:  "id",
	OrdersTable:     "orders",
	OrderIDField:    "id",
	ListingRefField: FieldListingID,
	NameField:       FieldTitle,
	MinorUnits:      true,
	SoldAsStatus:    true,
}

// SchemaByName resolves a preset.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case "", Catalog.Name:
		return Catalog, nil
	case Relational.Name:
		return Relational, nil
	}
	return Schema{}, fmt.Errorf("unknown store schema %q", name)
}

// ListingRow renders a draft in this layout's columns.
func (s Schema) ListingRow(d ListingDraft) Record {
	row := Record{
		FieldSellerID: d.SellerID,
		s.NameField:   d.Name,
		FieldQuantity: d.Quantity,
		FieldCategory: d.Category,
	}
	if d.Description != "" {
		row[FieldDescription] = d.Description
	}
	s.putPrice(row, FieldPrice, FieldPriceCents, d.Price.InexactFloat64(), toCents(d.Price))
	s.PutSold(row, false)
	return row
}

// PatchRow renders only the fields a patch supplied.
func (s Schema) PatchRow(p ListingPatch) Record {
	row := Record{}
	if p.Name != nil {
		row[s.NameField] = *p.Name
	}
	if p.Description != nil {
		row[FieldDescription] = *p.Description
	}
	if p.Price != nil {
		s.putPrice(row, FieldPrice, FieldPriceCents, p.Price.InexactFloat64(), toCents(*p.Price))
	}
	if p.Quantity != nil {
		row[FieldQuantity] = *p.Quantity
	}
	if p.Category != nil {
		row[FieldCategory] = *p.Category
	}
	if p.Sold != nil {
		s.PutSold(row, *p.Sold)
	}
	return row
}

// PutSold writes the sold flag in this layout's representation.
func (s Schema) PutSold(row Record, sold bool) {
	if s.SoldAsStatus {
		status := listingAvailable
		if sold {
			status = listingSold
		}
		row[FieldStatus] = status
		return
	}
	row[FieldSold] = sold
}

// SoldFilter returns the column and value that select listings by sold flag.
func (s Schema) SoldFilter(sold bool) (string, any) {
	if s.SoldAsStatus {
		if sold {
			return FieldStatus, listingSold
		}
		return FieldStatus, listingAvailable
	}
	return FieldSold, sold
}

// OrderRow renders a new pending order for listing l placed by buyerID.
// The amount is fixed here from the listing as read.
func (s Schema) OrderRow(l Listing, buyerID string, paymentMethod *string) Record {
	ref, ok := l[s.ListingIDField]
	if !ok || isEmpty(ref) {
		ref = l[FieldID]
	}
	row := Record{
		s.ListingRefField: ref,
		FieldBuyerID:      buyerID,
		FieldStatus:       string(StatusPending),
	}
	if p, ok := l.Price(); ok {
		s.putPrice(row, FieldAmount, FieldAmountCents, p.InexactFloat64(), toCents(p))
	}
	if paymentMethod != nil {
		row[FieldPaymentMethod] = *paymentMethod
	}
	return row
}

// OrderPatchRow renders only the fields an order patch supplied.
func (s Schema) OrderPatchRow(p OrderPatch) Record {
	row := Record{}
	if p.PaymentMethod != nil {
		row[FieldPaymentMethod] = *p.PaymentMethod
	}
	if p.Status != nil {
		row[FieldStatus] = string(*p.Status)
	}
	return row
}

func (s Schema) putPrice(row Record, decimalField, centsField string, value float64, cents int64) {
	if s.MinorUnits {
		row[centsField] = cents
		return
	}
	row[decimalField] = value
}
