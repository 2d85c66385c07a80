package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/allocator"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/metrics"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service orchestrates sales. Creation, confirmation, and cancellation each
// run inside a single transaction: the order row, its line items, every batch
// deduction, and every ledger row commit together or not at all.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo      Repository
	products  products.Repository
	allocator allocator.Service
	ledger    ledger.Repository
	tx        txRunner
	codes     CodeGenerator
	retries   int
	metrics   *metrics.InventoryMetrics
	logger    *logger.Logger
}

// NewService builds the order orchestrator with the required dependencies.
func NewService(
	repo Repository,
	productRepo products.Repository,
	alloc allocator.Service,
	ledgerRepo ledger.Repository,
	tx txRunner,
	codes CodeGenerator,
	retries int,
	m *metrics.InventoryMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if alloc == nil {
		return nil, fmt.Errorf("allocator required")
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
	if retries < 1 {
		retries = 1
	}
	return &service{
		repo:      repo,
		products:  productRepo,
		allocator: alloc,
		ledger:    ledgerRepo,
		tx:        tx,
		codes:     codes,
		retries:   retries,
		metrics:   m,
		logger:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	// A guard miss during allocation rolls the whole transaction back; the
	// retry re-plans against fresh stock levels.
	var order *models.Order
	var err error
	for attempt := 0; attempt < s.retries; attempt++ {
		order, err = s.createOnce(ctx, input)
		if err == nil {
			break
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, err
		}
		s.logger.Warn(s.logger.WithField(ctx, "attempt", attempt+1), "order allocation conflict, retrying")
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrder(order.Status.String())
	s.logger.Info(s.logger.WithOrderCode(ctx, order.Code), "order created")
	return order, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	seen := map[uuid.UUID]bool{}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if seen[item.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order items")
		}
		seen[item.ProductID] = true
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}
	return nil
}

func (s *service) createOnce(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	var created *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			productIDs = append(productIDs, item.ProductID)
		}

		catalog, err := s.products.WithTx(tx).FindMany(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		byID := make(map[uuid.UUID]models.Product, len(catalog))
		for _, p := range catalog {
			byID[p.ID] = p
		}
		for _, item := range input.Items {
			product, ok := byID[item.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is inactive").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
			if product.OutputPrice.Sign() <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "product has no positive sale price").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
		}

		code, err := s.codes.Next(ctx, tx, time.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate order code")
		}

		order := &models.Order{
			ID:            uuid.New(),
			Code:          code,
			Status:        enums.OrderStatusPending,
			PaymentMethod: input.PaymentMethod,
			Paid:          input.Paid,
			Note:          input.Note,
			ActorID:       input.Actor.ID,
			ActorName:     input.Actor.Name,
		}

		items := make([]models.OrderLineItem, 0, len(input.Items))
		total := decimal.Zero
		for _, item := range input.Items {
			product := byID[item.ProductID]
			subtotal := product.OutputPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
			items = append(items, models.OrderLineItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Unit:      product.Unit,
				Qty:       item.Qty,
				UnitPrice: product.OutputPrice,
				Subtotal:  subtotal,
			})
			total = total.Add(subtotal)
		}
		order.Total = total

		// Paid orders deduct stock immediately and complete; unpaid drafts
		// deduct on payment confirmation.
		if input.Paid {
			if err := s.deductForOrder(ctx, tx, order, items, input.Actor); err != nil {
				return err
			}
			order.StockDeducted = true
			order.Status = enums.OrderStatusCompleted
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}

		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// deductForOrder consumes stock FIFO for every line item and writes the
// matching export ledger rows. Runs inside the order transaction.
func (s *service) deductForOrder(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderLineItem, actor types.Actor) error {
	ledgerRepo := s.ledger.WithTx(tx)
	for _, item := range items {
		plan, err := s.allocator.Allocate(ctx, tx, item.ProductID, item.Qty)
		if err != nil {
			return err
		}
		for _, step := range plan {
			movement, err := ledger.NewMovement(item.ProductID, step.BatchID, enums.StockActionExport, step.Qty, actor)
			if err != nil {
				return err
			}
			movement.OrderID = &order.ID
			if err := ledgerRepo.CreateMovement(ctx, movement); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record export movement")
			}
			s.metrics.IncMovement(enums.StockActionExport.String())
		}
	}
	return nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}

	var confirmed *models.Order
	var err error
	for attempt := 0; attempt < s.retries; attempt++ {
		confirmed, err = s.confirmOnce(ctx, code, input)
		if err == nil {
			break
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, err
		}
		s.logger.Warn(s.logger.WithField(ctx, "attempt", attempt+1), "confirm allocation conflict, retrying")
	}
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

func (s *service) confirmOnce(ctx context.Context, code string, input ConfirmInput) (*models.Order, error) {
	var confirmed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// Re-delivered confirmations are acknowledged without re-applying.
		if order.Paid {
			confirmed = order
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot confirm a cancelled order")
		}

		actor := types.Actor{ID: order.ActorID, Name: order.ActorName}
		if !order.StockDeducted {
			if err := s.deductForOrder(ctx, tx, order, order.Items, actor); err != nil {
				return err
			}
		}

		updates := map[string]any{
			"paid":           true,
			"stock_deducted": true,
			"status":         enums.OrderStatusCompleted,
		}
		if txnID := strings.TrimSpace(input.TransactionID); txnID != "" {
			updates["gateway_txn_id"] = txnID
		}
		if input.Reference != nil {
			updates["gateway_ref"] = *input.Reference
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}

		confirmed, err = repo.Find(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrder(confirmed.Status.String())
	return confirmed, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be cancelled")
		}

		if err := repo.Update(ctx, order.ID, map[string]any{"status": enums.OrderStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}

		cancelled, err = repo.Find(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrder(cancelled.Status.String())
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code required")
	}
	order, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}
