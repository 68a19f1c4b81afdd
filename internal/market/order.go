package market

// Order is a normalized order row, with its listing embedded under
// EmbedAlias when the backend could join it.
type Order map[string]any

func (o Order) ID() string        { return Stringify(o[FieldID]) }
func (o Order) ListingID() string { return Stringify(o[FieldListingID]) }
func (o Order) BuyerID() string   { return Stringify(o[FieldBuyerID]) }
func (o Order) SellerID() string  { return Stringify(o[FieldSellerID]) }
func (o Order) Status() Status    { return Status(Stringify(o[FieldStatus])) }

// Product returns the embedded listing, or nil when none was joined.
func (o Order) Product() Listing {
	rec, ok := asRecord(o[EmbedAlias])
	if !ok || len(rec) == 0 {
		return nil
	}
	return Listing(rec)
}

// OrderPatch carries the fields an order update supplied.
type OrderPatch struct {
	PaymentMethod *string
	Status        *Status
}

func (p OrderPatch) Empty() bool {
	return p.PaymentMethod == nil && p.Status == nil
}
