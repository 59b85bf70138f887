package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePrefilled_PrefilledWins(t *testing.T) {
	extracted := Extracted{
		ProductName:       "Y",
		BatchNo:           "B12",
		ManufacturingDate: "01.02.24",
		ExpiryDate:        NotFound,
		MRP:               "15",
		Weight:            "100g",
	}
	prefilled := PartialDetails{FieldProductName: "X", FieldQuantity: "5"}

	got := MergePrefilled(extracted, prefilled)

	assert.Equal(t, "X", got.ProductName)
	assert.Equal(t, "5", got.Quantity)
	assert.Equal(t, "100g", got.Weight)
	assert.Equal(t, "B12", got.BatchNo)
	assert.Equal(t, NotFound, got.ExpiryDate)
	assert.Equal(t, "", got.BagNo)
}

func TestMergePrefilled_EmptyPrefillDoesNotOverride(t *testing.T) {
	got := MergePrefilled(Extracted{ProductName: "Biscuits"}, PartialDetails{FieldProductName: ""})
	assert.Equal(t, "Biscuits", got.ProductName)
}

func TestMergePrefilled_IgnoresNonOperatorFields(t *testing.T) {
	got := MergePrefilled(Extracted{MRP: "20"}, PartialDetails{FieldMRP: "99", FieldBagNo: "7"})
	assert.Equal(t, "20", got.MRP)
	assert.Equal(t, "7", got.BagNo)
}

func TestFallbackDetails(t *testing.T) {
	got := FallbackDetails(PartialDetails{FieldBagNo: "3", FieldMRP: "10"})

	assert.Equal(t, "", got.ProductName)
	assert.Equal(t, "3", got.BagNo)
	assert.Equal(t, "10", got.MRP)
	assert.Equal(t, NotFound, got.BatchNo)
	assert.Equal(t, NotFound, got.Weight)
	assert.Equal(t, "", got.Quantity)
}

func TestProductDetails_Validate(t *testing.T) {
	tests := []struct {
		name    string
		details ProductDetails
		bad     []string
	}{
		{"valid", ProductDetails{ProductName: "A", BagNo: "1", Quantity: "2"}, nil},
		{"missing name", ProductDetails{BagNo: "1", Quantity: "2"}, []string{"Product Name"}},
		{"blank bag", ProductDetails{ProductName: "A", BagNo: "  ", Quantity: "2"}, []string{"Bag No"}},
		{"zero quantity", ProductDetails{ProductName: "A", BagNo: "1", Quantity: "0"}, []string{"Quantity"}},
		{"text quantity", ProductDetails{ProductName: "A", BagNo: "1", Quantity: "two"}, []string{"Quantity"}},
		{"everything missing", ProductDetails{}, []string{"Product Name", "Bag No", "Quantity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate()
			if tt.bad == nil {
				assert.NoError(t, err)
				assert.True(t, tt.details.Confirmable())
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Len(t, verr.Fields, len(tt.bad))
			for _, f := range tt.bad {
				assert.Contains(t, verr.Fields, f)
			}
			assert.False(t, tt.details.Confirmable())
		})
	}
}

func TestProductDetails_GetSet(t *testing.T) {
	var d ProductDetails
	for i, f := range Fields {
		require.NoError(t, d.Set(f, string(rune('a'+i))))
	}
	for i, f := range Fields {
		assert.Equal(t, string(rune('a'+i)), d.Get(f))
	}
	assert.ErrorIs(t, d.Set(Field("Colour"), "red"), ErrUnknownField)
}

func TestPartialDetails_Validate(t *testing.T) {
	assert.NoError(t, PartialDetails{FieldBagNo: "1"}.Validate())
	assert.Error(t, PartialDetails{"Colour": "red"}.Validate())
}

func TestKeyClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	clock := NewKeyClockAt(func() time.Time { return fixed })

	a := clock.Next()
	b := clock.Next()
	c := clock.Next()

	assert.Equal(t, int64(1_700_000_000_000), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}

func TestKeyClock_Observe(t *testing.T) {
	fixed := time.UnixMilli(1000)
	clock := NewKeyClockAt(func() time.Time { return fixed })
	clock.Observe(5000)

	assert.Equal(t, int64(5001), clock.Next())

	clock.Observe(10)
	assert.Equal(t, int64(5002), clock.Next())
}
