package orders

import (
	"context"

	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
)

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	// OpenListID returns the active list when it is still accepting orders.
	OpenListID(ctx context.Context) (int64, bool, error)
	Get(ctx context.Context, id int64) (Order, error)
	ListByList(ctx context.Context, listID int64) ([]Order, error)
}

type Tx interface {
	// LockOpenList holds the open list so it cannot be closed or superseded mid-order.
	LockOpenList(ctx context.Context) (int64, bool, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	InsertItem(ctx context.Context, it Item) (Item, error)
}

// ProductLookup is the catalog query the recorder re-resolves cart lines with.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}
