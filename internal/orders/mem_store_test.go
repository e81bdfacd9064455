package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
)

type memState struct {
	orders   []Order
	items    []Item
	nextID   int64
	nextItem int64
}

func (s memState) clone() memState {
	return memState{
		orders:   append([]Order(nil), s.orders...),
		items:    append([]Item(nil), s.items...),
		nextID:   s.nextID,
		nextItem: s.nextItem,
	}
}

type memStore struct {
	mu         sync.Mutex
	st         memState
	openList   int64
	failItemAt int // 1-based insert call to fail, 0 disables
	itemCalls  int
}

func (s *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	s.itemCalls = 0
	if err := fn(&memTx{s: s, st: &work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *memStore) OpenListID(ctx context.Context) (int64, bool, error) {
	return s.openList, s.openList != 0, nil
}

func (s *memStore) Get(ctx context.Context, id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.st.orders {
		if o.ID == id {
			o.Items = s.itemsOf(id)
			return o, nil
		}
	}
	return Order{}, apperr.NotFound("order", id)
}

func (s *memStore) ListByList(ctx context.Context, listID int64) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Order{}
	for _, o := range s.st.orders {
		if o.WeeklyListID == listID {
			o.Items = s.itemsOf(o.ID)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) itemsOf(orderID int64) []Item {
	out := []Item{}
	for _, it := range s.st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out
}

func (s *memStore) counts() (orders, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders), len(s.st.items)
}

type memTx struct {
	s  *memStore
	st *memState
}

func (t *memTx) LockOpenList(ctx context.Context) (int64, bool, error) {
	return t.s.openList, t.s.openList != 0, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o Order) (Order, error) {
	t.st.nextID++
	o.ID = t.st.nextID
	o.CreatedAt = time.Now()
	o.Items = nil
	t.st.orders = append(t.st.orders, o)
	return o, nil
}

func (t *memTx) InsertItem(ctx context.Context, it Item) (Item, error) {
	t.s.itemCalls++
	if t.s.failItemAt == t.s.itemCalls {
		return Item{}, apperr.Storage("insert order item", errors.New("connection reset"))
	}
	t.st.nextItem++
	it.ID = t.st.nextItem
	t.st.items = append(t.st.items, it)
	return it, nil
}

type memCatalog map[int64]catalog.Product

func (c memCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := c[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id)
	}
	return p, nil
}
