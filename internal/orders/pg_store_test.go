package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/logging"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres/pgtest"
)

func TestPgStoreIntegration(t *testing.T) {
	pool := pgtest.Open(t)
	ctx := context.Background()
	tomate := pgtest.SeedProduct(t, pool, "Legumes", "Tomate", "6.20", "kg")
	alface := pgtest.SeedProduct(t, pool, "Verduras", "Alface", "5.00", "un")

	r := &Recorder{Store: &PgStore{DB: pool}, Catalog: &catalog.Repo{DB: pool}, Fee: d("10"), Log: logging.Discard()}
	sub := Submission{
		CustomerName: "Ana",
		DeliveryFee:  d("10"),
		Lines:        []CartLine{{ProductID: tomate, Quantity: d("0.5"), Price: d("6.20")}, {ProductID: alface, Quantity: d("3"), Price: d("5")}},
	}

	_, err := r.Submit(ctx, sub)
	assert.ErrorIs(t, err, apperr.ErrNoActiveList)

	var listID int64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO weekly_lists(week_start, week_end, is_active) VALUES ('2025-03-03', '2025-03-09', TRUE)
		RETURNING id`).Scan(&listID))

	o, err := r.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, listID, o.WeeklyListID)

	got, err := r.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Tomate", got.Items[0].ProductName)
	assert.Equal(t, "0.5", got.Items[0].Quantity.String())
	assert.Equal(t, "28.10", got.TotalAmount.StringFixed(2))
	assert.True(t, got.Reconciles())

	_, err = r.Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	sub.Lines = append(sub.Lines, CartLine{ProductID: 424242, Quantity: d("1")})
	_, err = r.Submit(ctx, sub)
	assert.ErrorIs(t, err, apperr.ErrUnknownProduct)

	all, err := r.ForList(ctx, listID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = pool.Exec(ctx, `UPDATE weekly_lists SET is_closed = TRUE WHERE id=$1`, listID)
	require.NoError(t, err)
	sub.Lines = sub.Lines[:1]
	_, err = r.Submit(ctx, sub)
	assert.ErrorIs(t, err, apperr.ErrNoActiveList)
}
