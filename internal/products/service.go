package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines catalog operations. Price updates always write a matching
// audit row in the same transaction; listing goes through a short-lived cache
// that every write invalidates.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	UpdatePrices(ctx context.Context, input UpdatePricesInput) (*models.Product, error)
}

type service struct {
	repo     Repository
	ledger   ledger.Repository
	tx       txRunner
	cache    redis.CacheStore
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewService builds a product service with the required dependencies.
func NewService(repo Repository, ledgerRepo ledger.Repository, tx txRunner, cache redis.CacheStore, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		ledger:   ledgerRepo,
		tx:       tx,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.InputPrice.Sign() < 0 || input.OutputPrice.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}

	if existing, err := s.repo.FindBySKU(ctx, sku); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sku")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "unit"
	}

	product := &models.Product{
		ID:          uuid.New(),
		SKU:         sku,
		Name:        name,
		Unit:        unit,
		CategoryID:  input.CategoryID,
		SupplierID:  input.SupplierID,
		InputPrice:  input.InputPrice,
		OutputPrice: input.OutputPrice,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	s.invalidateListCache(ctx)
	return product, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	key := s.listCacheKey(params, filters)
	if key != "" {
		if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
			var list ProductList
			if err := json.Unmarshal([]byte(cached), &list); err == nil {
				return &list, nil
			}
		} else if err != nil && !errors.Is(err, goredis.Nil) {
			s.logger.Warn(ctx, "product list cache read failed")
		}
	}

	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	if key != "" {
		if encoded, err := json.Marshal(list); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil {
				s.logger.Warn(ctx, "product list cache write failed")
			}
		}
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit must not be empty")
		}
		updates["unit"] = unit
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	s.invalidateListCache(ctx)
	return s.Get(ctx, id)
}

func (s *service) UpdatePrices(ctx context.Context, input UpdatePricesInput) (*models.Product, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.InputPrice.Sign() < 0 || input.OutputPrice.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}
	if input.Actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.Find(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if product.InputPrice.Equal(input.InputPrice) && product.OutputPrice.Equal(input.OutputPrice) {
			updated = product
			return nil
		}

		err = repo.Update(ctx, product.ID, map[string]any{
			"input_price":  input.InputPrice,
			"output_price": input.OutputPrice,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update prices")
		}

		change := &models.PriceChange{
			ID:             uuid.New(),
			ProductID:      product.ID,
			OldInputPrice:  product.InputPrice,
			NewInputPrice:  input.InputPrice,
			OldOutputPrice: product.OutputPrice,
			NewOutputPrice: input.OutputPrice,
			Note:           input.Note,
			ActorID:        input.Actor.ID,
			ActorName:      input.Actor.Name,
		}
		if err := s.ledger.WithTx(tx).CreatePriceChange(ctx, change); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record price change")
		}

		updated, err = repo.Find(ctx, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateListCache(ctx)
	return updated, nil
}

// listCacheKey only caches the unfiltered first page; everything else goes to
// the database directly.
func (s *service) listCacheKey(params pagination.Params, filters ListFilters) string {
	if s.cache == nil || s.cacheTTL <= 0 {
		return ""
	}
	if params.Cursor != "" || filters.Search != "" || filters.CategoryID != nil {
		return ""
	}
	if pagination.NormalizeLimit(params.Limit) != pagination.DefaultLimit {
		return ""
	}
	scope := "all"
	if filters.ActiveOnly {
		scope = "active"
	}
	return s.cache.CacheKey("products", "list", scope)
}

func (s *service) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{
		s.cache.CacheKey("products", "list", "all"),
		s.cache.CacheKey("products", "list", "active"),
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn(ctx, "product list cache invalidation failed")
	}
}
