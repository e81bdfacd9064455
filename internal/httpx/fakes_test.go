package httpx

import (
	"context"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/auth"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/orders"
	"github.com/ariefcatur/go-weekly-orders/internal/reports"
	"github.com/ariefcatur/go-weekly-orders/internal/weekly"
)

type fakeLists struct {
	current   *weekly.Current
	reads     int
	onRead    func()
	lists     map[int64]weekly.List
	published []weekly.PublishInput
	lastCap   auth.Capability
	err       error
}

func (f *fakeLists) CurrentCatalog(ctx context.Context) (weekly.Current, bool, error) {
	f.reads++
	cur, err := f.current, f.err
	// onRead runs after the result is taken, like a write landing mid-request
	if f.onRead != nil {
		f.onRead()
	}
	if err != nil {
		return weekly.Current{}, false, err
	}
	if cur == nil {
		return weekly.Current{}, false, nil
	}
	return *cur, true, nil
}

func (f *fakeLists) Publish(ctx context.Context, capa auth.Capability, in weekly.PublishInput) (weekly.List, error) {
	f.lastCap = capa
	if !capa.Allows(auth.ScopeLists) {
		return weekly.List{}, apperr.ErrForbidden
	}
	if f.err != nil {
		return weekly.List{}, f.err
	}
	f.published = append(f.published, in)
	l := weekly.List{ID: int64(len(f.published)), WeekStart: in.WeekStart, WeekEnd: in.WeekEnd, Active: true}
	f.lists[l.ID] = l
	return l, nil
}

func (f *fakeLists) Close(ctx context.Context, capa auth.Capability, id int64) (weekly.List, error) {
	l, ok := f.lists[id]
	if !ok {
		return weekly.List{}, apperr.NotFound("weekly list", id)
	}
	l.Closed = true
	f.lists[id] = l
	return l, nil
}

func (f *fakeLists) History(ctx context.Context, limit int) ([]weekly.List, error) {
	out := []weekly.List{}
	for _, l := range f.lists {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLists) Get(ctx context.Context, id int64) (weekly.List, error) {
	l, ok := f.lists[id]
	if !ok {
		return weekly.List{}, apperr.NotFound("weekly list", id)
	}
	return l, nil
}

type fakeOrders struct {
	mu    sync.Mutex
	got   []orders.Submission
	err   error
	saved map[int64]orders.Order
	hold  chan struct{} // Submit waits on it when set
}

func (f *fakeOrders) Submit(ctx context.Context, sub orders.Submission) (orders.Order, error) {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sub)
	if f.err != nil {
		return orders.Order{}, f.err
	}
	o := orders.Order{ID: int64(len(f.got)), CustomerName: sub.CustomerName, DeliveryFee: sub.DeliveryFee, WeeklyListID: 1, CreatedAt: time.Now()}
	if f.saved == nil {
		f.saved = map[int64]orders.Order{}
	}
	f.saved[o.ID] = o
	return o, nil
}

func (f *fakeOrders) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func (f *fakeOrders) Get(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := f.saved[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (f *fakeOrders) ForList(ctx context.Context, listID int64) ([]orders.Order, error) {
	out := []orders.Order{}
	for _, o := range f.saved {
		if o.WeeklyListID == listID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeProducts []catalog.Product

func (f fakeProducts) ListActiveProducts(ctx context.Context, categoryID *int64) ([]catalog.Product, error) {
	out := []catalog.Product{}
	for _, p := range f {
		if categoryID == nil || p.CategoryID == *categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeEvents struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeEvents) Publish(key, value []byte, headers ...kafkago.Header) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, string(key))
	return true
}

type fakeReports struct{}

func (fakeReports) Report(ctx context.Context, listID int64) (reports.Report, error) {
	return reports.Report{ListID: listID, ProductSales: []reports.ProductSale{}}, nil
}

type fakeCatalog struct {
	products map[int64]catalog.Product
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{ID: 1, Name: "Verduras"}}, nil
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, in catalog.CategoryInput) (catalog.Category, error) {
	if err := in.Normalize(); err != nil {
		return catalog.Category{}, err
	}
	return catalog.Category{ID: 2, Name: in.Name, Slug: catalog.SlugOf(in.Name)}, nil
}

func (f *fakeCatalog) UpdateCategory(ctx context.Context, id int64, in catalog.CategoryInput) (catalog.Category, error) {
	return catalog.Category{ID: id, Name: in.Name}, nil
}

func (f *fakeCatalog) DeleteCategory(ctx context.Context, id int64) error {
	return apperr.Conflict("category still has products")
}

func (f *fakeCatalog) ListProducts(ctx context.Context, flt catalog.Filter) ([]catalog.Product, error) {
	out := []catalog.Product{}
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error) {
	if err := in.Normalize(); err != nil {
		return catalog.Product{}, err
	}
	p := catalog.Product{ID: 10, Name: in.Name, Price: in.Price, Unit: in.Unit, Active: true, CategoryID: in.CategoryID}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeCatalog) UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error) {
	return catalog.Product{ID: id, Name: in.Name}, nil
}

func (f *fakeCatalog) ToggleActive(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id)
	}
	p.Active = !p.Active
	f.products[id] = p
	return p, nil
}

func (f *fakeCatalog) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return apperr.NotFound("product", id)
	}
	delete(f.products, id)
	return nil
}

type memRevoker struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (m *memRevoker) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = true
	return nil
}

func (m *memRevoker) IsRevoked(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[id], nil
}

type fakeCatalogCache struct {
	version int64
	bodies  map[int64][]byte
}

func (f *fakeCatalogCache) CatalogVersion(ctx context.Context) (int64, error) { return f.version, nil }

func (f *fakeCatalogCache) CachedCatalog(ctx context.Context, version int64) ([]byte, bool, error) {
	b, ok := f.bodies[version]
	return b, ok, nil
}

func (f *fakeCatalogCache) CacheCatalog(ctx context.Context, version int64, body []byte) error {
	f.bodies[version] = body
	return nil
}

// fakeGuard mirrors the Redis claim semantics: 0 marks a pending key.
type fakeGuard struct {
	mu   sync.Mutex
	keys map[string]int64
	err  error
}

func (f *fakeGuard) ClaimOrder(ctx context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, false, f.err
	}
	id, ok := f.keys[key]
	switch {
	case !ok:
		f.keys[key] = 0
		return 0, true, nil
	case id == 0:
		return 0, false, apperr.Conflict("an order with this Idempotency-Key is still being processed")
	default:
		return id, false, nil
	}
}

func (f *fakeGuard) RememberOrder(ctx context.Context, key string, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = orderID
	return nil
}

func (f *fakeGuard) ReleaseOrder(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func (f *fakeGuard) pending(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[key]
	return ok && id == 0
}
