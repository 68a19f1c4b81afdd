package market

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeListing maps a raw listing row of schema s onto the canonical
// shape. Coercions that fail keep the original value.
func NormalizeListing(raw Record, s Schema) Listing {
	if len(raw) == 0 {
		return nil
	}
	out := raw.Clone()

	canonicalID(out, s.ListingIDField)

	if v, ok := coerceDecimal(out[FieldPrice]); ok {
		out[FieldPrice] = v
	}
	if v, ok := coerceInt(out[FieldQuantity]); ok {
		out[FieldQuantity] = v
	}
	if v, ok := coerceInt(out[FieldPriceCents]); ok {
		out[FieldPriceCents] = v
	}
	deriveMoney(out, FieldPrice, FieldPriceCents)

	switch c := out[FieldCategory].(type) {
	case nil:
		out[FieldCategory] = DefaultCategory
	case string:
		if c == "" {
			out[FieldCategory] = DefaultCategory
		}
	default:
		out[FieldCategory] = Stringify(c)
	}

	alias(out, FieldName, FieldTitle)
	if _, ok := out[FieldSold]; !ok {
		if status, ok := out[FieldStatus].(string); ok {
			out[FieldSold] = status == listingSold
		}
	}
	return Listing(out)
}

// NormalizeOrder maps a raw order row onto the canonical shape, normalizing
// the embedded listing and lifting its seller onto the order.
func NormalizeOrder(raw Record, s Schema) Order {
	if len(raw) == 0 {
		return nil
	}
	out := raw.Clone()

	canonicalID(out, s.OrderIDField)

	if embedded, ok := asRecord(out[EmbedAlias]); ok && len(embedded) > 0 {
		product := NormalizeListing(embedded, s)
		out[EmbedAlias] = product
		if seller, ok := product[FieldSellerID]; ok && isEmpty(out[FieldSellerID]) {
			out[FieldSellerID] = seller
		}
	}

	if s.ListingRefField != "" && s.ListingRefField != FieldListingID {
		if ref := out[s.ListingRefField]; !isEmpty(ref) {
			out[FieldListingID] = ref
		}
	}

	if v, ok := coerceDecimal(out[FieldAmount]); ok {
		out[FieldAmount] = v
	}
	if v, ok := coerceInt(out[FieldAmountCents]); ok {
		out[FieldAmountCents] = v
	}
	deriveMoney(out, FieldAmount, FieldAmountCents)
	return Order(out)
}

func canonicalID(r Record, idField string) {
	if v := r[idField]; idField != "" && !isEmpty(v) {
		r[FieldID] = v
	}
}

// coerceDecimal turns a textual or json.Number amount into a float64.
func coerceDecimal(v any) (float64, bool) {
	var text string
	switch t := v.(type) {
	case string:
		text = strings.TrimSpace(t)
	case json.Number:
		text = t.String()
	default:
		return 0, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	case json.Number, float64:
		return intValue(t)
	}
	return 0, false
}

// deriveMoney fills whichever of the decimal and minor-unit fields is
// missing from the other.
func deriveMoney(r Record, decimalField, centsField string) {
	_, hasDecimal := r[decimalField]
	_, hasCents := r[centsField]
	switch {
	case hasCents && !hasDecimal:
		if cents, ok := intValue(r[centsField]); ok {
			r[decimalField] = decimal.New(int64(cents), -2).InexactFloat64()
		}
	case hasDecimal && !hasCents:
		if f, ok := floatValue(r[decimalField]); ok {
			r[centsField] = toCents(decimal.NewFromFloat(f))
		}
	}
}

func alias(r Record, a, b string) {
	av, aok := r[a]
	bv, bok := r[b]
	switch {
	case (!aok || av == nil) && bok && bv != nil:
		r[a] = bv
	case (!bok || bv == nil) && aok && av != nil:
		r[b] = av
	}
}
