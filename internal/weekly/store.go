package weekly

import (
	"context"

	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
)

// Store is the list persistence used by Manager. Every write goes through InTx.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	Active(ctx context.Context) (List, bool, error)
	Get(ctx context.Context, id int64) (List, error)
	History(ctx context.Context, limit int) ([]List, error)
	Members(ctx context.Context, listID int64) ([]catalog.Product, error)
}

// Tx is the write side of Store, valid only inside InTx.
type Tx interface {
	// ProductStates maps each known id to its active flag. Unknown ids are absent.
	ProductStates(ctx context.Context, ids []int64) (map[int64]bool, error)
	DeactivateAll(ctx context.Context) (int64, error)
	InsertList(ctx context.Context, start, end Date) (List, error)
	InsertItems(ctx context.Context, listID int64, productIDs []int64) error
	// Lock returns the list and holds it until the transaction ends.
	Lock(ctx context.Context, id int64) (List, error)
	LockActive(ctx context.Context) (List, bool, error)
	MarkClosed(ctx context.Context, id int64) (List, error)
}

// CategorySource is the read side of the catalog the manager needs.
type CategorySource interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
}
