package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"sales_server/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductRepo struct {
	products []domain.Product
	err      error
	calls    atomic.Int32
}

func (f *fakeProductRepo) ListByBusiness(_ context.Context, _ int64) ([]domain.Product, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeProductRepo) GetByID(context.Context, int64, int64) (*domain.Product, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProductRepo) Create(context.Context, int64, *domain.ProductInput) (*domain.Product, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProductRepo) Update(context.Context, int64, int64, *domain.ProductInput) (*domain.Product, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProductRepo) Delete(context.Context, int64, int64) error {
	return errors.New("not implemented")
}

type fakeBusinessRepo struct {
	business *domain.Business
}

func (f *fakeBusinessRepo) GetByID(_ context.Context, _ int64) (*domain.Business, error) {
	if f.business == nil {
		return nil, errors.New("not found")
	}
	return f.business, nil
}

func (f *fakeBusinessRepo) Create(context.Context, string, string) (*domain.Business, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBusinessRepo) Update(context.Context, int64, string, string) (*domain.Business, error) {
	return nil, errors.New("not implemented")
}

type memoryCache struct {
	mu    sync.Mutex
	items map[int64][]domain.Product
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[int64][]domain.Product)}
}

func (c *memoryCache) Get(_ context.Context, id int64) ([]domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	return p, ok
}

func (c *memoryCache) Set(_ context.Context, id int64, products []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = products
}

func (c *memoryCache) Invalidate(_ context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

const inlineConfig = `{
  "name": "Corner Shop",
  "whatsapp": "+1234567890",
  "products": [
    {"name": "Inline Mug", "description": "Ceramic mug", "price": 9.5, "tags": "mug,kitchen"},
    {"description": "no name"}
  ]
}`

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("persisted products take precedence", func(t *testing.T) {
		products := &fakeProductRepo{products: []domain.Product{{ID: 1, Name: "Stored Lamp"}}}
		business := &fakeBusinessRepo{business: &domain.Business{ID: 7, Config: inlineConfig}}

		got, err := NewResolver(products, business, nil).Resolve(ctx, 7)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Stored Lamp", got[0].Name)
		assert.Equal(t, domain.SourceDatabase, got[0].Source)
	})

	t.Run("inline products when nothing is stored", func(t *testing.T) {
		products := &fakeProductRepo{}
		business := &fakeBusinessRepo{business: &domain.Business{ID: 7, Config: inlineConfig}}

		got, err := NewResolver(products, business, nil).Resolve(ctx, 7)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Inline Mug", got[0].Name)
		assert.Equal(t, domain.SourceConfig, got[0].Source)
		require.NotNil(t, got[0].Price)
		assert.InDelta(t, 9.5, *got[0].Price, 0.0001)
	})

	t.Run("both sources empty", func(t *testing.T) {
		products := &fakeProductRepo{}
		business := &fakeBusinessRepo{business: &domain.Business{ID: 7, Name: "Empty"}}

		got, err := NewResolver(products, business, nil).Resolve(ctx, 7)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid inline config resolves to empty", func(t *testing.T) {
		products := &fakeProductRepo{}
		business := &fakeBusinessRepo{business: &domain.Business{ID: 7, Config: `{"products": [{"name": "X", "price": "free"}]}`}}

		got, err := NewResolver(products, business, nil).Resolve(ctx, 7)

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("repository failure is returned", func(t *testing.T) {
		products := &fakeProductRepo{err: errors.New("db down")}
		business := &fakeBusinessRepo{}

		_, err := NewResolver(products, business, nil).Resolve(ctx, 7)

		assert.ErrorContains(t, err, "db down")
	})
}

func TestResolver_Cache(t *testing.T) {
	ctx := context.Background()
	products := &fakeProductRepo{products: []domain.Product{{ID: 1, Name: "Stored Lamp"}}}
	cache := newMemoryCache()
	resolver := NewResolver(products, &fakeBusinessRepo{}, cache)

	_, err := resolver.Resolve(ctx, 3)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, products.calls.Load())

	resolver.Invalidate(ctx, 3)
	_, err = resolver.Resolve(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, products.calls.Load())
}

// gatedProductRepo blocks the first listing until release is closed. The
// listing returns the products as they were when the call started.
type gatedProductRepo struct {
	fakeProductRepo
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
	gated   atomic.Bool
}

func (g *gatedProductRepo) setProducts(products []domain.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products = products
}

func (g *gatedProductRepo) ListByBusiness(_ context.Context, _ int64) ([]domain.Product, error) {
	g.mu.Lock()
	snapshot := make([]domain.Product, len(g.products))
	copy(snapshot, g.products)
	g.mu.Unlock()

	if g.gated.CompareAndSwap(false, true) {
		close(g.entered)
		<-g.release
	}
	return snapshot, nil
}

func TestResolver_InvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	repo := &gatedProductRepo{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	repo.setProducts([]domain.Product{{ID: 1, Name: "Old Cap"}})
	cache := newMemoryCache()
	resolver := NewResolver(repo, &fakeBusinessRepo{}, cache)

	done := make(chan []domain.Product)
	go func() {
		got, err := resolver.Resolve(ctx, 1)
		assert.NoError(t, err)
		done <- got
	}()

	<-repo.entered
	repo.setProducts([]domain.Product{{ID: 1, Name: "Old Cap"}, {ID: 2, Name: "New Hat"}})
	resolver.Invalidate(ctx, 1)
	close(repo.release)

	stale := <-done
	assert.Len(t, stale, 1)

	_, cached := cache.Get(ctx, 1)
	assert.False(t, cached, "a load that raced an invalidation must not fill the cache")

	got, err := resolver.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "New Hat", got[1].Name)

	cachedProducts, cached := cache.Get(ctx, 1)
	require.True(t, cached)
	assert.Len(t, cachedProducts, 2)
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantErr      bool
		wantProducts int
		wantName     string
	}{
		{name: "empty document", raw: ""},
		{name: "inline catalog", raw: inlineConfig, wantProducts: 1, wantName: "Corner Shop"},
		{name: "extra fields allowed", raw: `{"name": "A", "theme": "dark", "products": [{"name": "B", "color": "red"}]}`, wantProducts: 1, wantName: "A"},
		{name: "syntax error", raw: `{"name": `, wantErr: true},
		{name: "wrong type", raw: `{"enable_lead_capture": "yes"}`, wantErr: true},
		{name: "negative price", raw: `{"products": [{"name": "B", "price": -1}]}`, wantErr: true},
		{name: "not an object", raw: `[1, 2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cfg.Products, tt.wantProducts)
			assert.Equal(t, tt.wantName, cfg.Name)
		})
	}
}

func TestConfigFor(t *testing.T) {
	cfg, err := ConfigFor(&domain.Business{Name: "Fallback Name", Config: `{"whatsapp": "+1"}`})
	require.NoError(t, err)
	assert.Equal(t, "Fallback Name", cfg.Name)
	assert.Equal(t, "+1", cfg.WhatsApp)

	cfg, err = ConfigFor(&domain.Business{Name: "Broken", Config: `{`})
	assert.Error(t, err)
	assert.Equal(t, "Broken", cfg.Name)
}
