package weekly

import (
	"sort"

	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
)

// Section is one category of the current catalog with its offered products.
type Section struct {
	Category catalog.Category  `json:"category"`
	Products []catalog.Product `json:"products"`
}

// Current is the active list as customers see it.
type Current struct {
	List     List      `json:"list"`
	Open     bool      `json:"accepting_orders"`
	Sections []Section `json:"sections"`
}

// BuildCatalog groups the list's members by category. Inactive products and products of
// unknown categories are left out. Sections sort by display order then name, products by name.
func BuildCatalog(l List, cats []catalog.Category, members []catalog.Product) Current {
	byID := make(map[int64]catalog.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	grouped := map[int64][]catalog.Product{}
	for _, p := range members {
		if !p.Active {
			continue
		}
		if _, ok := byID[p.CategoryID]; !ok {
			continue
		}
		grouped[p.CategoryID] = append(grouped[p.CategoryID], p)
	}

	sections := make([]Section, 0, len(grouped))
	for catID, ps := range grouped {
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].Name != ps[j].Name {
				return ps[i].Name < ps[j].Name
			}
			return ps[i].ID < ps[j].ID
		})
		sections = append(sections, Section{Category: byID[catID], Products: ps})
	}
	sort.Slice(sections, func(i, j int) bool {
		a, b := sections[i].Category, sections[j].Category
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	return Current{List: l, Open: l.AcceptsOrders(), Sections: sections}
}
