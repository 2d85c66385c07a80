package products

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/migrate"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/redis"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

// fakeCache is an in-memory CacheStore for exercising the list cache path.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	sets    int
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return "", goredis.Nil
	}
	f.hits++
	return value, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = fmt.Sprint(value)
	f.sets++
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *fakeCache) CacheKey(parts ...string) string {
	key := "cache"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func setupProductsTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:products_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(migrate.AutoMigrateModels...))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newProductService(t *testing.T, cache *fakeCache) (Service, *db.Client) {
	t.Helper()

	client := setupProductsTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "products-test", Output: io.Discard})

	var store redis.CacheStore
	if cache != nil {
		store = cache
	}
	svc, err := NewService(NewRepository(client.DB()), ledger.NewRepository(client.DB()), client, store, time.Minute, logg)
	require.NoError(t, err)
	return svc, client
}

func productActor() types.Actor {
	return types.Actor{ID: uuid.New(), Name: "hoa.le"}
}

func TestCreateProductAndSKUConflict(t *testing.T) {
	svc, _ := newProductService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		SKU:         "PARA-500",
		Name:        "Paracetamol 500mg",
		Unit:        "box",
		InputPrice:  decimal.RequireFromString("6.00"),
		OutputPrice: decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, "PARA-500", created.SKU)

	_, err = svc.Create(ctx, CreateInput{
		SKU:         "PARA-500",
		Name:        "Paracetamol 500mg (duplicate)",
		InputPrice:  decimal.RequireFromString("6.00"),
		OutputPrice: decimal.RequireFromString("12.50"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newProductService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "No SKU"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateInput{SKU: "X-1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateInput{
		SKU:        "X-1",
		Name:       "Negative",
		InputPrice: decimal.RequireFromString("-1.00"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdatePricesWritesAuditRow(t *testing.T) {
	svc, client := newProductService(t, nil)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateInput{
		SKU:         "AMOX-250",
		Name:        "Amoxicillin 250mg",
		InputPrice:  decimal.RequireFromString("4.00"),
		OutputPrice: decimal.RequireFromString("8.00"),
	})
	require.NoError(t, err)

	actor := productActor()
	updated, err := svc.UpdatePrices(ctx, UpdatePricesInput{
		ProductID:   product.ID,
		InputPrice:  decimal.RequireFromString("4.50"),
		OutputPrice: decimal.RequireFromString("9.00"),
		Actor:       actor,
	})
	require.NoError(t, err)
	assert.True(t, updated.OutputPrice.Equal(decimal.RequireFromString("9.00")))

	var changes []models.PriceChange
	require.NoError(t, client.DB().Where("product_id = ?", product.ID).Find(&changes).Error)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].OldOutputPrice.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, changes[0].NewOutputPrice.Equal(decimal.RequireFromString("9.00")))
	assert.Equal(t, actor.ID, changes[0].ActorID)
}

func TestUpdatePricesNoOpWhenUnchanged(t *testing.T) {
	svc, client := newProductService(t, nil)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateInput{
		SKU:         "IBU-400",
		Name:        "Ibuprofen 400mg",
		InputPrice:  decimal.RequireFromString("3.00"),
		OutputPrice: decimal.RequireFromString("6.75"),
	})
	require.NoError(t, err)

	_, err = svc.UpdatePrices(ctx, UpdatePricesInput{
		ProductID:   product.ID,
		InputPrice:  decimal.RequireFromString("3.00"),
		OutputPrice: decimal.RequireFromString("6.75"),
		Actor:       productActor(),
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.PriceChange{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count, "identical prices must not produce an audit row")
}

func TestListUsesCacheForDefaultFirstPage(t *testing.T) {
	cache := newFakeCache()
	svc, _ := newProductService(t, cache)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		SKU:         "VITC-1000",
		Name:        "Vitamin C 1000mg",
		InputPrice:  decimal.RequireFromString("1.50"),
		OutputPrice: decimal.RequireFromString("3.00"),
	})
	require.NoError(t, err)

	// First call fills the cache, second is served from it.
	_, err = svc.List(ctx, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	_, err = svc.List(ctx, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	// Filtered listings bypass the cache entirely.
	_, err = svc.List(ctx, pagination.Params{}, ListFilters{Search: "vitamin"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// A write invalidates the cached page.
	_, err = svc.Create(ctx, CreateInput{
		SKU:         "ZINC-50",
		Name:        "Zinc Tablets",
		InputPrice:  decimal.RequireFromString("2.00"),
		OutputPrice: decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

func TestUpdateProductFields(t *testing.T) {
	svc, _ := newProductService(t, nil)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateInput{
		SKU:         "MASK-01",
		Name:        "Face Mask",
		InputPrice:  decimal.RequireFromString("0.50"),
		OutputPrice: decimal.RequireFromString("1.25"),
	})
	require.NoError(t, err)

	inactive := false
	name := "Face Mask (50 pack)"
	updated, err := svc.Update(ctx, product.ID, UpdateInput{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.IsActive)

	_, err = svc.Update(ctx, product.ID, UpdateInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
