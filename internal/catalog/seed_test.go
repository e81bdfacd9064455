package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
categories:
  - name: Verduras
    emoji: "🥬"
    order: 1
    products:
      - {name: Alface, price: "5.00", unit: un, organic: true}
  - name: Legumes
    emoji: "🍅"
    order: 2
    products:
      - {name: Tomate, price: "6.20", unit: kg}
`

func TestParseSeed(t *testing.T) {
	s, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	require.Len(t, s.Categories, 2)
	assert.Equal(t, "Verduras", s.Categories[0].Name)
	assert.Equal(t, 2, s.Categories[1].Order)
	require.Len(t, s.Categories[1].Products, 1)
	assert.Equal(t, "6.20", s.Categories[1].Products[0].Price)
	assert.True(t, s.Categories[0].Products[0].Organic)
}

func TestParseSeed_Empty(t *testing.T) {
	s, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s.Categories)
}

func TestParseSeed_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad price":     "categories:\n  - name: A\n    products:\n      - {name: X, price: abc, unit: kg}\n",
		"zero price":    "categories:\n  - name: A\n    products:\n      - {name: X, price: \"0\", unit: kg}\n",
		"duplicate":     "categories:\n  - name: A\n  - name: A\n",
		"unknown field": "categories:\n  - name: A\n    colour: red\n",
		"nameless":      "categories:\n  - emoji: x\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
