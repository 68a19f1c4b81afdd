package market

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeListing(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		raw    Record
		check  func(t *testing.T, l Listing)
	}{
		{
			name:   "variant id becomes canonical id",
			schema: Catalog,
			raw:    Record{"prod_id": json.Number("42"), "name": "Lamp"},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, "42", l.ID())
			},
		},
		{
			name:   "literal id kept when variant field missing",
			schema: Catalog,
			raw:    Record{"id": "abc"},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, "abc", l.ID())
			},
		},
		{
			name:   "textual price and quantity are coerced",
			schema: Catalog,
			raw:    Record{"prod_id": 1, "price": "12.50", "quantity": "3"},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, 12.5, l[FieldPrice])
				assert.Equal(t, 3, l[FieldQuantity])
				q, ok := l.Quantity()
				assert.True(t, ok)
				assert.Equal(t, 3, q)
				assert.Equal(t, int64(1250), l[FieldPriceCents])
			},
		},
		{
			name:   "unparseable price and quantity keep original text",
			schema: Catalog,
			raw:    Record{"prod_id": 1, "price": "free", "quantity": "lots"},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, "free", l[FieldPrice])
				assert.Equal(t, "lots", l[FieldQuantity])
				_, ok := l.Quantity()
				assert.False(t, ok)
				_, ok = l.Price()
				assert.False(t, ok)
			},
		},
		{
			name:   "missing category defaults",
			schema: Catalog,
			raw:    Record{"prod_id": 1},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, DefaultCategory, l.Category())
			},
		},
		{
			name:   "null and empty category default",
			schema: Catalog,
			raw:    Record{"prod_id": 1, "category": nil},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, DefaultCategory, l[FieldCategory])
			},
		},
		{
			name:   "non-string category is stringified",
			schema: Catalog,
			raw:    Record{"prod_id": 1, "category": json.Number("7")},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, "7", l[FieldCategory])
			},
		},
		{
			name:   "relational row derives price, name and sold",
			schema: Relational,
			raw:    Record{"id": 9, "title": "Desk", "price_cents": json.Number("2599"), "status": "sold"},
			check: func(t *testing.T, l Listing) {
				assert.Equal(t, "9", l.ID())
				assert.Equal(t, "Desk", l.Name())
				assert.Equal(t, 25.99, l[FieldPrice])
				assert.Equal(t, 2599, l[FieldPriceCents])
				assert.True(t, l.Sold())
			},
		},
		{
			name:   "available status reads unsold",
			schema: Relational,
			raw:    Record{"id": 9, "status": "available"},
			check: func(t *testing.T, l Listing) {
				assert.False(t, l.Sold())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NormalizeListing(tt.raw, tt.schema)
			require.NotNil(t, l)
			tt.check(t, l)
		})
	}
}

func TestNormalizeListing_DoesNotMutateInput(t *testing.T) {
	raw := Record{"prod_id": 1, "price": "3.00"}
	NormalizeListing(raw, Catalog)
	assert.Equal(t, "3.00", raw["price"])
	_, hasID := raw["id"]
	assert.False(t, hasID)
}

func TestNormalizeListing_Empty(t *testing.T) {
	assert.Nil(t, NormalizeListing(nil, Catalog))
	assert.Nil(t, NormalizeListing(Record{}, Catalog))
}

func TestNormalizeOrder(t *testing.T) {
	t.Run("embedded listing seller lifts onto order", func(t *testing.T) {
		raw := Record{
			"id":       json.Number("5"),
			"prod_id":  json.Number("42"),
			"buyer_id": "buyer",
			"product":  map[string]any{"prod_id": json.Number("42"), "seller_id": "seller", "price": "10"},
		}
		o := NormalizeOrder(raw, Catalog)
		assert.Equal(t, "5", o.ID())
		assert.Equal(t, "42", o.ListingID())
		assert.Equal(t, "seller", o.SellerID())

		p := o.Product()
		require.NotNil(t, p)
		assert.Equal(t, "42", p.ID())
		assert.Equal(t, 10.0, p[FieldPrice])
		assert.Equal(t, DefaultCategory, p.Category())
	})

	t.Run("existing seller is not overwritten", func(t *testing.T) {
		raw := Record{
			"id":        1,
			"seller_id": "stored",
			"product":   map[string]any{"seller_id": "joined"},
		}
		o := NormalizeOrder(raw, Catalog)
		assert.Equal(t, "stored", o.SellerID())
	})

	t.Run("order without embed keeps fields", func(t *testing.T) {
		o := NormalizeOrder(Record{"id": 1, "listing_id": 3, "amount_cents": json.Number("500")}, Relational)
		assert.Nil(t, o.Product())
		assert.Equal(t, "3", o.ListingID())
		assert.Equal(t, 5.0, o[FieldAmount])
	})

	t.Run("null embed is ignored", func(t *testing.T) {
		o := NormalizeOrder(Record{"id": 1, "product": nil}, Catalog)
		assert.Nil(t, o.Product())
		assert.Equal(t, "", o.SellerID())
	})
}

func TestNormalizeListing_OutOfRangePrice(t *testing.T) {
	raws := []Record{
		{"prod_id": 1, "price": json.Number("1e309")},
		{"prod_id": 1, "price": "1e309"},
		{"prod_id": 1, "price": math.Inf(1)},
		{"prod_id": 1, "price": math.NaN()},
	}
	for _, raw := range raws {
		var l Listing
		require.NotPanics(t, func() { l = NormalizeListing(raw, Catalog) })
		_, ok := l.Price()
		assert.False(t, ok)
		_, ok = l.PriceCents()
		assert.False(t, ok)
		assert.NotContains(t, l, FieldPriceCents)
	}
}
