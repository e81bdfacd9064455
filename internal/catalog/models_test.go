package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

func TestProductInput_Normalize(t *testing.T) {
	in := ProductInput{Name: "  Tomate ", Price: decimal.RequireFromString("6.199"), Unit: " kg ", CategoryID: 1}
	require.NoError(t, in.Normalize())

	assert.Equal(t, "Tomate", in.Name)
	assert.Equal(t, "kg", in.Unit)
	assert.True(t, in.Price.Equal(decimal.RequireFromString("6.20")))
	assert.True(t, in.active())
}

func TestProductInput_Rejects(t *testing.T) {
	inactive := false
	cases := map[string]struct {
		in    ProductInput
		field string
	}{
		"no name":        {ProductInput{Price: decimal.NewFromInt(1), Unit: "kg", CategoryID: 1}, "name"},
		"no unit":        {ProductInput{Name: "Alface", Price: decimal.NewFromInt(1), CategoryID: 1}, "unit"},
		"zero price":     {ProductInput{Name: "Alface", Unit: "un", CategoryID: 1}, "price"},
		"negative price": {ProductInput{Name: "Alface", Price: decimal.NewFromInt(-2), Unit: "un", CategoryID: 1}, "price"},
		"rounds to zero": {ProductInput{Name: "Alface", Price: decimal.RequireFromString("0.004"), Unit: "un", CategoryID: 1}, "price"},
		"no category":    {ProductInput{Name: "Alface", Price: decimal.NewFromInt(5), Unit: "un", Active: &inactive}, "category_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.in.Normalize()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
			assert.Equal(t, tc.field, apperr.FieldOf(err))
		})
	}
}

func TestProductInput_ExplicitInactive(t *testing.T) {
	off := false
	in := ProductInput{Active: &off}
	assert.False(t, in.active())
}

func TestCategoryInput_Normalize(t *testing.T) {
	in := CategoryInput{Name: "  Frutas ", Emoji: " 🍎 "}
	require.NoError(t, in.Normalize())
	assert.Equal(t, "Frutas", in.Name)
	assert.Equal(t, "🍎", in.Emoji)

	assert.ErrorIs(t, (&CategoryInput{Name: "   "}).Normalize(), apperr.ErrInvalidInput)
}

func TestSlugOf(t *testing.T) {
	assert.Equal(t, "frutas-e-legumes", SlugOf("Frutas e Legumes"))
	assert.Equal(t, "organicos", SlugOf("Orgânicos"))
}
