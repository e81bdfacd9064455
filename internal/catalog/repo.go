package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
)

// Repo is the Postgres catalog. The list and order services only read through it.
type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, price, unit, is_organic, is_active, category_id, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Organic, &p.Active, &p.CategoryID, &p.CreatedAt)
	return p, err
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Emoji, &c.DisplayOrder); err != nil {
		return Category{}, err
	}
	c.Slug = SlugOf(c.Name)
	return c, nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, emoji, display_order FROM categories ORDER BY display_order, name`)
	if err != nil {
		return nil, apperr.Storage("list categories", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, apperr.Storage("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list categories", err)
	}
	return out, nil
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.DB.QueryRow(ctx, `SELECT id, name, emoji, display_order FROM categories WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, apperr.NotFound("category", id)
	}
	if err != nil {
		return Category{}, apperr.Storage("get category", err)
	}
	return c, nil
}

func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	if err := in.Normalize(); err != nil {
		return Category{}, err
	}
	c, err := scanCategory(r.DB.QueryRow(ctx, `
		INSERT INTO categories(name, emoji, display_order) VALUES ($1, $2, $3)
		RETURNING id, name, emoji, display_order`, in.Name, in.Emoji, in.DisplayOrder))
	if postgres.IsUniqueViolation(err, "categories_name_key") {
		return Category{}, apperr.Conflict("category name already exists")
	}
	if err != nil {
		return Category{}, apperr.Storage("create category", err)
	}
	return c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	if err := in.Normalize(); err != nil {
		return Category{}, err
	}
	c, err := scanCategory(r.DB.QueryRow(ctx, `
		UPDATE categories SET name=$2, emoji=$3, display_order=$4 WHERE id=$1
		RETURNING id, name, emoji, display_order`, id, in.Name, in.Emoji, in.DisplayOrder))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Category{}, apperr.NotFound("category", id)
	case postgres.IsUniqueViolation(err, "categories_name_key"):
		return Category{}, apperr.Conflict("category name already exists")
	case err != nil:
		return Category{}, apperr.Storage("update category", err)
	}
	return c, nil
}

// DeleteCategory refuses while any product still points at the category.
func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		var used bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE category_id=$1)`, id).Scan(&used); err != nil {
			return apperr.Storage("check category members", err)
		}
		if used {
			return apperr.Conflict("category still has products")
		}
		ct, err := tx.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
		if postgres.IsForeignKeyViolation(err) {
			return apperr.Conflict("category still has products")
		}
		if err != nil {
			return apperr.Storage("delete category", err)
		}
		if ct.RowsAffected() == 0 {
			return apperr.NotFound("category", id)
		}
		return nil
	})
}

func (r *Repo) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		where = append(where, "category_id=$1")
	}
	q := `SELECT ` + productCols + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name, id`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Storage("list products", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Storage("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list products", err)
	}
	return out, nil
}

// ListActiveProducts is the catalog query used by the storefront.
func (r *Repo) ListActiveProducts(ctx context.Context, categoryID *int64) ([]Product, error) {
	return r.ListProducts(ctx, Filter{CategoryID: categoryID, ActiveOnly: true})
}

// GetProduct returns apperr.ErrNotFound when the id does not resolve.
func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return Product{}, apperr.Storage("get product", err)
	}
	return p, nil
}

func (r *Repo) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.Normalize(); err != nil {
		return Product{}, err
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(name, price, unit, is_organic, is_active, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productCols,
		in.Name, in.Price.String(), in.Unit, in.Organic, in.active(), in.CategoryID))
	if postgres.IsForeignKeyViolation(err) {
		return Product{}, apperr.Invalid("category_id", "unknown category")
	}
	if err != nil {
		return Product{}, apperr.Storage("create product", err)
	}
	return p, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := in.Normalize(); err != nil {
		return Product{}, err
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET name=$2, price=$3, unit=$4, is_organic=$5, is_active=$6, category_id=$7
		WHERE id=$1
		RETURNING `+productCols,
		id, in.Name, in.Price.String(), in.Unit, in.Organic, in.active(), in.CategoryID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Product{}, apperr.NotFound("product", id)
	case postgres.IsForeignKeyViolation(err):
		return Product{}, apperr.Invalid("category_id", "unknown category")
	case err != nil:
		return Product{}, apperr.Storage("update product", err)
	}
	return p, nil
}

// ToggleActive flips the soft-hide flag and returns the updated product.
func (r *Repo) ToggleActive(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET is_active = NOT is_active WHERE id=$1 RETURNING `+productCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return Product{}, apperr.Storage("toggle product", err)
	}
	return p, nil
}

// DeleteProduct hard-deletes only products with no order history and no list membership.
func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		var referenced bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id=$1)
			    OR EXISTS(SELECT 1 FROM weekly_list_items WHERE product_id=$1)`, id).Scan(&referenced)
		if err != nil {
			return apperr.Storage("check product references", err)
		}
		if referenced {
			return apperr.Conflict("product is referenced by orders or lists; deactivate it instead")
		}
		ct, err := tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
		if postgres.IsForeignKeyViolation(err) {
			return apperr.Conflict("product is referenced by orders or lists; deactivate it instead")
		}
		if err != nil {
			return apperr.Storage("delete product", err)
		}
		if ct.RowsAffected() == 0 {
			return apperr.NotFound("product", id)
		}
		return nil
	})
}
