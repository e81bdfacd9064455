package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
)

// Seed is the YAML catalog file loaded by cmd/seed.
//
//	categories:
//	  - name: Verduras
//	    emoji: "🥬"
//	    order: 1
//	    products:
//	      - {name: Alface, price: "5.00", unit: un, organic: true}
type Seed struct {
	Categories []SeedCategory `yaml:"categories"`
}

type SeedCategory struct {
	Name     string        `yaml:"name"`
	Emoji    string        `yaml:"emoji"`
	Order    int           `yaml:"order"`
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	Name    string `yaml:"name"`
	Price   string `yaml:"price"`
	Unit    string `yaml:"unit"`
	Organic bool   `yaml:"organic"`
}

// ParseSeed decodes and validates a seed file. Prices are strings so "6.20" keeps its cents.
func ParseSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}

	seen := map[string]bool{}
	for i, c := range s.Categories {
		in := CategoryInput{Name: c.Name, Emoji: c.Emoji, DisplayOrder: c.Order}
		if err := in.Normalize(); err != nil {
			return Seed{}, fmt.Errorf("categories[%d]: %w", i, err)
		}
		if seen[in.Name] {
			return Seed{}, fmt.Errorf("categories[%d]: %w", i, apperr.Invalid("name", "duplicate category "+in.Name))
		}
		seen[in.Name] = true
		for j, p := range c.Products {
			if _, err := p.input(1); err != nil {
				return Seed{}, fmt.Errorf("categories[%d].products[%d]: %w", i, j, err)
			}
		}
	}
	return s, nil
}

func (p SeedProduct) input(categoryID int64) (ProductInput, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return ProductInput{}, apperr.Invalid("price", "not a decimal number")
	}
	in := ProductInput{Name: p.Name, Price: price, Unit: p.Unit, Organic: p.Organic, CategoryID: categoryID}
	return in, in.Normalize()
}

// SeedResult counts what ApplySeed wrote.
type SeedResult struct {
	Categories int
	Created    int
	Updated    int
}

// ApplySeed upserts categories by name and products by (category, name) in one transaction.
func (r *Repo) ApplySeed(ctx context.Context, s Seed) (SeedResult, error) {
	var res SeedResult
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		for _, c := range s.Categories {
			var catID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO categories(name, emoji, display_order) VALUES ($1, $2, $3)
				ON CONFLICT (name) DO UPDATE SET emoji=EXCLUDED.emoji, display_order=EXCLUDED.display_order
				RETURNING id`, c.Name, c.Emoji, c.Order).Scan(&catID)
			if err != nil {
				return apperr.Storage("seed category", err)
			}
			res.Categories++

			for _, sp := range c.Products {
				in, err := sp.input(catID)
				if err != nil {
					return err
				}
				ct, err := tx.Exec(ctx, `
					UPDATE products SET price=$3, unit=$4, is_organic=$5
					WHERE category_id=$1 AND name=$2`,
					catID, in.Name, in.Price.String(), in.Unit, in.Organic)
				if err != nil {
					return apperr.Storage("seed product", err)
				}
				if ct.RowsAffected() > 0 {
					res.Updated++
					continue
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO products(name, price, unit, is_organic, category_id)
					VALUES ($1, $2, $3, $4, $5)`,
					in.Name, in.Price.String(), in.Unit, in.Organic, catID); err != nil {
					return apperr.Storage("seed product", err)
				}
				res.Created++
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return res, nil
}
