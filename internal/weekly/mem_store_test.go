package weekly

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
)

type memState struct {
	lists  []List
	items  map[int64][]int64
	nextID int64
}

func (s memState) clone() memState {
	c := memState{
		lists:  append([]List(nil), s.lists...),
		items:  make(map[int64][]int64, len(s.items)),
		nextID: s.nextID,
	}
	for k, v := range s.items {
		c.items[k] = append([]int64(nil), v...)
	}
	return c
}

// memStore copies state on begin and swaps it in on commit, so a failed tx leaves no trace.
type memStore struct {
	mu       sync.Mutex
	st       memState
	products map[int64]catalog.Product
	fail     map[string]error
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{
		st:       memState{items: map[int64][]int64{}},
		products: map[int64]catalog.Product{},
		fail:     map[string]error{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&memTx{s: s, st: &work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *memStore) Active(ctx context.Context) (List, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.st.lists {
		if l.Active {
			return l, true, nil
		}
	}
	return List{}, false, nil
}

func (s *memStore) Get(ctx context.Context, id int64) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.st.lists {
		if l.ID == id {
			return l, nil
		}
	}
	return List{}, apperr.NotFound("weekly list", id)
}

func (s *memStore) History(ctx context.Context, limit int) ([]List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]List(nil), s.st.lists...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Members(ctx context.Context, listID int64) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []catalog.Product{}
	for _, id := range s.st.items[listID] {
		out = append(out, s.products[id])
	}
	return out, nil
}

func (s *memStore) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.st.lists {
		if l.Active {
			n++
		}
	}
	return n
}

type memTx struct {
	s  *memStore
	st *memState
}

func (t *memTx) injected(op string) error { return t.s.fail[op] }

func (t *memTx) ProductStates(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok {
			out[id] = p.Active
		}
	}
	return out, nil
}

func (t *memTx) DeactivateAll(ctx context.Context) (int64, error) {
	var n int64
	for i := range t.st.lists {
		if t.st.lists[i].Active {
			t.st.lists[i].Active = false
			n++
		}
	}
	return n, t.injected("DeactivateAll")
}

func (t *memTx) InsertList(ctx context.Context, start, end Date) (List, error) {
	if err := t.injected("InsertList"); err != nil {
		return List{}, err
	}
	for _, l := range t.st.lists {
		if l.Active {
			return List{}, apperr.Conflict("another list is active")
		}
	}
	t.st.nextID++
	l := List{ID: t.st.nextID, WeekStart: start, WeekEnd: end, Active: true, CreatedAt: time.Now()}
	t.st.lists = append(t.st.lists, l)
	return l, nil
}

func (t *memTx) InsertItems(ctx context.Context, listID int64, productIDs []int64) error {
	t.st.items[listID] = append(t.st.items[listID], productIDs...)
	return t.injected("InsertItems")
}

func (t *memTx) Lock(ctx context.Context, id int64) (List, error) {
	for _, l := range t.st.lists {
		if l.ID == id {
			return l, nil
		}
	}
	return List{}, apperr.NotFound("weekly list", id)
}

func (t *memTx) LockActive(ctx context.Context) (List, bool, error) {
	for _, l := range t.st.lists {
		if l.Active {
			return l, true, nil
		}
	}
	return List{}, false, nil
}

func (t *memTx) MarkClosed(ctx context.Context, id int64) (List, error) {
	if err := t.injected("MarkClosed"); err != nil {
		return List{}, err
	}
	for i := range t.st.lists {
		if t.st.lists[i].ID == id {
			t.st.lists[i].Closed = true
			return t.st.lists[i], nil
		}
	}
	return List{}, apperr.NotFound("weekly list", id)
}

type memCategories []catalog.Category

func (c memCategories) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return c, nil
}
