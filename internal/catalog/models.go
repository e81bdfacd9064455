package catalog

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Emoji        string `json:"emoji"`
	DisplayOrder int    `json:"display_order"`
}

type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Unit       string          `json:"unit"`
	Organic    bool            `json:"is_organic"`
	Active     bool            `json:"is_active"`
	CategoryID int64           `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CategoryInput struct {
	Name         string `json:"name"`
	Emoji        string `json:"emoji"`
	DisplayOrder int    `json:"display_order"`
}

type ProductInput struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Unit       string          `json:"unit"`
	Organic    bool            `json:"is_organic"`
	Active     *bool           `json:"is_active,omitempty"`
	CategoryID int64           `json:"category_id"`
}

// Filter narrows ListProducts. A nil CategoryID means every category.
type Filter struct {
	CategoryID *int64
	ActiveOnly bool
}

func SlugOf(name string) string { return slug.Make(name) }

func (in *CategoryInput) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Emoji = strings.TrimSpace(in.Emoji)
	if in.Name == "" {
		return apperr.Required("name")
	}
	return nil
}

func (in *ProductInput) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	in.Price = in.Price.Round(2)
	switch {
	case in.Name == "":
		return apperr.Required("name")
	case in.Unit == "":
		return apperr.Required("unit")
	case !in.Price.IsPositive():
		return apperr.Invalid("price", "must be greater than zero")
	case in.CategoryID <= 0:
		return apperr.Required("category_id")
	}
	return nil
}

func (in ProductInput) active() bool {
	return in.Active == nil || *in.Active
}
