package domain

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		tolerance  float64
	}{
		{name: "same point", lat1: 37.98, lon1: 23.72, lat2: 37.98, lon2: 23.72, want: 0, tolerance: 1e-9},
		{name: "athens to thessaloniki", lat1: 37.9838, lon1: 23.7275, lat2: 40.6401, lon2: 22.9444, want: 302, tolerance: 5},
		{name: "quarter meridian", lat1: 0, lon1: 0, lat2: 90, lon2: 0, want: math.Pi / 2 * earthRadiusKm, tolerance: 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestPriceRating(t *testing.T) {
	tests := []struct {
		avg    float64
		rating int
		symbol string
	}{
		{0, 1, "$"},
		{5, 1, "$"},
		{5.01, 2, "$$"},
		{15, 2, "$$"},
		{15.5, 3, "$$$"},
	}
	for _, tt := range tests {
		rating := PriceRating(tt.avg)
		assert.Equal(t, tt.rating, rating, "avg %.2f", tt.avg)
		assert.Equal(t, tt.symbol, PriceSymbol(rating))
	}
}

func TestStoreAveragePriceIgnoresHidden(t *testing.T) {
	s := &Store{Name: "Pizzeria", Products: []Product{
		NewProduct("Margherita", "pizza", 5, 8.5),
		NewProduct("Truffle", "pizza", 1, 40),
	}}
	assert.InDelta(t, 24.25, s.AveragePrice(), 1e-9)

	s.Products[1].Visible = false
	assert.InDelta(t, 8.5, s.AveragePrice(), 1e-9)

	s.Products[0].Visible = false
	assert.Zero(t, s.AveragePrice())
}

func TestStoreFindProductCaseInsensitive(t *testing.T) {
	s := &Store{Products: []Product{NewProduct("Margherita", "pizza", 5, 8.5)}}
	assert.Equal(t, 0, s.FindProduct("margherita"))
	assert.Equal(t, 0, s.FindProduct("MARGHERITA"))
	assert.Equal(t, -1, s.FindProduct("Marinara"))
}

func TestStoreCloneIsDeep(t *testing.T) {
	s := &Store{Name: "A", Products: []Product{NewProduct("P", "t", 1, 1)}}
	c := s.Clone()
	c.Products[0].Amount = 99
	assert.Equal(t, 1, s.Products[0].Amount)
}

func TestProductValidate(t *testing.T) {
	require.NoError(t, NewProduct("Cola", "drink", 0, 0).Validate())
	assert.ErrorIs(t, NewProduct("", "drink", 1, 1).Validate(), ErrInvalidProduct)
	assert.ErrorIs(t, NewProduct("Cola", "drink", -1, 1).Validate(), ErrInvalidProduct)
	assert.ErrorIs(t, NewProduct("Cola", "drink", 1, -0.5).Validate(), ErrInvalidProduct)
}

func TestDecodeStore(t *testing.T) {
	doc := `{
    "StoreName": "Pizzeria",
    "Latitude": 37.98,
    "Longitude": 23.72,
    "FoodCategory": "pizza",
    "Stars": 4,
    "NoOfVotes": 15,
    "StoreLogo": "logos/pizzeria.png",
    "Products": [
        {"ProductName": "Margherita", "ProductType": "pizza", "Available Amount": 5, "Price": 8.5},
        {"ProductName": "Cola", "ProductType": "drink", "Available Amount": 20, "Price": 1.5}
    ]
}`
	s, err := DecodeStore(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Pizzeria", s.Name)
	assert.Equal(t, 4, s.Stars)
	require.Len(t, s.Products, 2)
	assert.Equal(t, "Pizzeria", s.Products[1].StoreName)
	assert.True(t, s.Products[0].Visible)
	assert.Equal(t, 5, s.Products[0].Amount)

	t.Run("snapshot can be read back", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeStore(&buf, s))
		assert.Contains(t, buf.String(), `"Available Amount": 5`)

		again, err := DecodeStore(&buf)
		require.NoError(t, err)
		assert.Equal(t, s, again)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := DecodeStore(strings.NewReader(`{"Stars": 3}`))
		assert.Error(t, err)
	})

	t.Run("negative stock", func(t *testing.T) {
		_, err := DecodeStore(strings.NewReader(`{"StoreName": "X", "Products": [{"ProductName": "P", "Available Amount": -2}]}`))
		assert.ErrorIs(t, err, ErrInvalidProduct)
	})
}
