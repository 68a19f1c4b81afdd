package market

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Canonical field names of the external shape.
const (
	FieldID            = "id"
	FieldSellerID      = "seller_id"
	FieldBuyerID       = "buyer_id"
	FieldListingID     = "listing_id"
	FieldName          = "name"
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldPriceCents    = "price_cents"
	FieldQuantity      = "quantity"
	FieldCategory      = "category"
	FieldSold          = "sold"
	FieldStatus        = "status"
	FieldAmount        = "amount"
	FieldAmountCents   = "amount_cents"
	FieldPaymentMethod = "payment_method"
	FieldCreatedAt     = "created_at"

	// EmbedAlias is the key under which an order carries its listing.
	EmbedAlias = "product"
)

// Record is a raw row as the store returns it, keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stringify renders a scalar the way filters and identifiers compare it.
// nil renders as the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// intValue reports v as an int when it is integer-typed. Strings are not
// parsed here; normalization decides whether a string becomes a number.
func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int(t), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// floatValue reports v as a float64 when it is numeric and finite.
func floatValue(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// asRecord unwraps the shapes an embedded row can take after decoding.
func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, t != nil
	case Listing:
		return Record(t), t != nil
	case map[string]any:
		return Record(t), t != nil
	}
	return nil, false
}
