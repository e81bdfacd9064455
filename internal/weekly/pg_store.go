package weekly

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
)

const listCols = `id, week_start, week_end, is_active, is_closed, created_at`

const oneActiveIndex = "weekly_lists_one_active"

type PgStore struct{ DB *pgxpool.Pool }

func scanList(row pgx.Row) (List, error) {
	var l List
	err := row.Scan(&l.ID, &l.WeekStart.Time, &l.WeekEnd.Time, &l.Active, &l.Closed, &l.CreatedAt)
	return l, err
}

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return postgres.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *PgStore) Active(ctx context.Context) (List, bool, error) {
	l, err := scanList(s.DB.QueryRow(ctx, `SELECT `+listCols+` FROM weekly_lists WHERE is_active`))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, false, nil
	}
	if err != nil {
		return List{}, false, apperr.Storage("get active list", err)
	}
	return l, true, nil
}

func (s *PgStore) Get(ctx context.Context, id int64) (List, error) {
	l, err := scanList(s.DB.QueryRow(ctx, `SELECT `+listCols+` FROM weekly_lists WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, apperr.NotFound("weekly list", id)
	}
	if err != nil {
		return List{}, apperr.Storage("get list", err)
	}
	return l, nil
}

func (s *PgStore) History(ctx context.Context, limit int) ([]List, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+listCols+` FROM weekly_lists
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.Storage("list history", err)
	}
	defer rows.Close()

	out := []List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, apperr.Storage("scan list", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list history", err)
	}
	return out, nil
}

// Members returns every product on the list, including ones deactivated since publishing.
func (s *PgStore) Members(ctx context.Context, listID int64) ([]catalog.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT p.id, p.name, p.price, p.unit, p.is_organic, p.is_active, p.category_id, p.created_at
		FROM weekly_list_items wli
		JOIN products p ON p.id = wli.product_id
		WHERE wli.weekly_list_id = $1
		ORDER BY p.name, p.id`, listID)
	if err != nil {
		return nil, apperr.Storage("list members", err)
	}
	defer rows.Close()

	out := []catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Unit, &p.Organic, &p.Active, &p.CategoryID, &p.CreatedAt); err != nil {
			return nil, apperr.Storage("scan member", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list members", err)
	}
	return out, nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) ProductStates(ctx context.Context, ids []int64) (map[int64]bool, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, is_active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Storage("check products", err)
	}
	defer rows.Close()

	out := make(map[int64]bool, len(ids))
	for rows.Next() {
		var (
			id     int64
			active bool
		)
		if err := rows.Scan(&id, &active); err != nil {
			return nil, apperr.Storage("scan product state", err)
		}
		out[id] = active
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("check products", err)
	}
	return out, nil
}

func (t *pgTx) DeactivateAll(ctx context.Context) (int64, error) {
	ct, err := t.tx.Exec(ctx, `UPDATE weekly_lists SET is_active = FALSE WHERE is_active`)
	if err != nil {
		return 0, apperr.Storage("deactivate lists", err)
	}
	return ct.RowsAffected(), nil
}

func (t *pgTx) InsertList(ctx context.Context, start, end Date) (List, error) {
	l, err := scanList(t.tx.QueryRow(ctx, `
		INSERT INTO weekly_lists(week_start, week_end, is_active, is_closed)
		VALUES ($1, $2, TRUE, FALSE)
		RETURNING `+listCols, start.Time, end.Time))
	if postgres.IsUniqueViolation(err, oneActiveIndex) {
		return List{}, apperr.Conflict("another list was published at the same time; retry")
	}
	if postgres.IsCheckViolation(err) {
		return List{}, apperr.Invalid("week_end", "must not be before week_start")
	}
	if err != nil {
		return List{}, apperr.Storage("insert list", err)
	}
	return l, nil
}

func (t *pgTx) InsertItems(ctx context.Context, listID int64, productIDs []int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO weekly_list_items(weekly_list_id, product_id)
		SELECT $1, unnest($2::bigint[])`, listID, productIDs)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Invalid("product_ids", "product no longer exists")
	}
	if err != nil {
		return apperr.Storage("insert list items", err)
	}
	return nil
}

func (t *pgTx) Lock(ctx context.Context, id int64) (List, error) {
	l, err := scanList(t.tx.QueryRow(ctx, `SELECT `+listCols+` FROM weekly_lists WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, apperr.NotFound("weekly list", id)
	}
	if err != nil {
		return List{}, apperr.Storage("lock list", err)
	}
	return l, nil
}

func (t *pgTx) LockActive(ctx context.Context) (List, bool, error) {
	l, err := scanList(t.tx.QueryRow(ctx, `SELECT `+listCols+` FROM weekly_lists WHERE is_active FOR UPDATE`))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, false, nil
	}
	if err != nil {
		return List{}, false, apperr.Storage("lock active list", err)
	}
	return l, true, nil
}

func (t *pgTx) MarkClosed(ctx context.Context, id int64) (List, error) {
	l, err := scanList(t.tx.QueryRow(ctx, `
		UPDATE weekly_lists SET is_closed = TRUE WHERE id=$1 RETURNING `+listCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return List{}, apperr.NotFound("weekly list", id)
	}
	if err != nil {
		return List{}, apperr.Storage("close list", err)
	}
	return l, nil
}
