package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/allocator"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/batches"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/orders"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/metrics"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles post-sale returns and exchanges. A record opens as pending
// and advances monotonically: plain returns finish as returned, exchanges
// pass through in_exchange and finish as completed. Processing runs in one
// transaction so stock reversal, re-allocation, line item swap, and total
// recomputation land together or not at all.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ReturnExchange, error)
	Process(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.ReturnExchange, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ReturnExchange, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnExchange, error)
}

type service struct {
	repo      Repository
	orders    orders.Repository
	batches   batches.Repository
	products  products.Repository
	allocator allocator.Service
	ledger    ledger.Repository
	tx        txRunner
	retries   int
	metrics   *metrics.InventoryMetrics
	logger    *logger.Logger
}

// NewService builds the returns service with the required dependencies.
func NewService(
	repo Repository,
	orderRepo orders.Repository,
	batchRepo batches.Repository,
	productRepo products.Repository,
	alloc allocator.Service,
	ledgerRepo ledger.Repository,
	tx txRunner,
	retries int,
	m *metrics.InventoryMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if batchRepo == nil {
		return nil, fmt.Errorf("batch repository required")
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
		orders:    orderRepo,
		batches:   batchRepo,
		products:  productRepo,
		allocator: alloc,
		ledger:    ledgerRepo,
		tx:        tx,
		retries:   retries,
		metrics:   m,
		logger:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.ReturnExchange, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return action")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.BatchID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product and batch ids required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	if input.Action == enums.ReturnActionExchange {
		if input.NewProductID == nil || *input.NewProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange requires a replacement product")
		}
		if input.NewQty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange quantity must be positive")
		}
	}
	if input.Actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}

	order, err := s.orders.Find(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "returns require a completed order")
	}

	// Every handed-back position must match a sold line item, and the
	// returned quantity cannot exceed what was sold.
	soldQty := make(map[uuid.UUID]int, len(order.Items))
	for _, line := range order.Items {
		soldQty[line.ProductID] += line.Qty
	}
	for _, item := range input.Items {
		sold, ok := soldQty[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product was not sold on this order").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if item.Qty > sold {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "returned quantity exceeds sold quantity").
				WithDetails(map[string]any{"product_id": item.ProductID, "sold": sold})
		}

		// The reversal later decrements the named batch, so the pair has to
		// agree up front.
		batch, err := s.batches.Find(ctx, item.BatchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found").
					WithDetails(map[string]any{"batch_id": item.BatchID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
		}
		if batch.ProductID != item.ProductID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch does not belong to returned product").
				WithDetails(map[string]any{"batch_id": item.BatchID, "product_id": item.ProductID})
		}
	}

	record := &models.ReturnExchange{
		ID:           uuid.New(),
		OrderID:      order.ID,
		Action:       input.Action,
		Status:       enums.ReturnStatusPending,
		ReceiptRef:   input.ReceiptRef,
		CustomerName: input.CustomerName,
		NewProductID: input.NewProductID,
		NewQty:       input.NewQty,
		Note:         input.Note,
		ActorID:      input.Actor.ID,
		ActorName:    input.Actor.Name,
	}
	for _, item := range input.Items {
		record.Items = append(record.Items, models.ReturnExchangeItem{
			ID:        uuid.New(),
			ProductID: item.ProductID,
			BatchID:   item.BatchID,
			Qty:       item.Qty,
		})
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return record")
	}
	return record, nil
}

func (s *service) Process(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.ReturnExchange, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}

	var processed *models.ReturnExchange
	var err error
	for attempt := 0; attempt < s.retries; attempt++ {
		processed, err = s.processOnce(ctx, id, actor)
		if err == nil {
			break
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, err
		}
		s.logger.Warn(s.logger.WithField(ctx, "attempt", attempt+1), "exchange allocation conflict, retrying")
	}
	if err != nil {
		return nil, err
	}
	return processed, nil
}

func (s *service) processOnce(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.ReturnExchange, error) {
	var processed *models.ReturnExchange

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return record")
		}
		if record.Status != enums.ReturnStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return record already processed").
				WithDetails(map[string]any{"status": record.Status})
		}

		orderRepo := s.orders.WithTx(tx)
		order, err := orderRepo.Find(ctx, record.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		switch record.Action {
		case enums.ReturnActionReturn:
			if err := s.applyReturn(ctx, tx, record, order, actor); err != nil {
				return err
			}
		case enums.ReturnActionExchange:
			if !record.Status.CanAdvanceTo(enums.ReturnStatusInExchange) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "exchange cannot start from current status")
			}
			if err := repo.Update(ctx, record.ID, map[string]any{"status": enums.ReturnStatusInExchange}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance to in_exchange")
			}
			record.Status = enums.ReturnStatusInExchange
			if err := s.applyExchange(ctx, tx, record, order, actor); err != nil {
				return err
			}
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid return action")
		}

		processed, err = repo.Find(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload return record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return processed, nil
}

// applyReturn hands stock back to its batches, shrinks the affected line
// items, recomputes the order total, and finishes the record as returned.
func (s *service) applyReturn(ctx context.Context, tx *gorm.DB, record *models.ReturnExchange, order *models.Order, actor types.Actor) error {
	if !record.Status.CanAdvanceTo(enums.ReturnStatusReturned) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "return cannot finish from current status")
	}

	if err := s.reverseItems(ctx, tx, record, actor); err != nil {
		return err
	}

	orderRepo := s.orders.WithTx(tx)
	for _, item := range record.Items {
		line := findLineItem(order.Items, item.ProductID)
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order line item missing for returned product").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		newQty := line.Qty - item.Qty
		if newQty < 0 {
			newQty = 0
		}
		newSubtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(newQty)))
		err := orderRepo.UpdateLineItem(ctx, line.ID, map[string]any{
			"qty":      newQty,
			"subtotal": newSubtotal,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shrink line item")
		}
	}

	if err := s.recomputeTotal(ctx, tx, order.ID); err != nil {
		return err
	}

	err := s.repo.WithTx(tx).Update(ctx, record.ID, map[string]any{"status": enums.ReturnStatusReturned})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finish return")
	}
	return nil
}

// applyExchange reverses the old positions, allocates the replacement FIFO,
// swaps the line item, recomputes the total, and completes the record.
func (s *service) applyExchange(ctx context.Context, tx *gorm.DB, record *models.ReturnExchange, order *models.Order, actor types.Actor) error {
	if err := s.reverseItems(ctx, tx, record, actor); err != nil {
		return err
	}

	newProduct, err := s.products.WithTx(tx).Find(ctx, *record.NewProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "replacement product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replacement product")
	}

	plan, err := s.allocator.Allocate(ctx, tx, newProduct.ID, record.NewQty)
	if err != nil {
		return err
	}
	ledgerRepo := s.ledger.WithTx(tx)
	for _, step := range plan {
		movement, err := ledger.NewMovement(newProduct.ID, step.BatchID, enums.StockActionExchange, step.Qty, actor)
		if err != nil {
			return err
		}
		movement.OrderID = &order.ID
		if err := ledgerRepo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record exchange movement")
		}
		s.metrics.IncMovement(enums.StockActionExchange.String())
	}

	// Swap the first returned position for the replacement product.
	oldLine := findLineItem(order.Items, record.Items[0].ProductID)
	if oldLine == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order line item missing for exchanged product").
			WithDetails(map[string]any{"product_id": record.Items[0].ProductID})
	}
	newSubtotal := newProduct.OutputPrice.Mul(decimal.NewFromInt(int64(record.NewQty)))
	orderRepo := s.orders.WithTx(tx)
	err = orderRepo.UpdateLineItem(ctx, oldLine.ID, map[string]any{
		"product_id": newProduct.ID,
		"name":       newProduct.Name,
		"unit":       newProduct.Unit,
		"qty":        record.NewQty,
		"unit_price": newProduct.OutputPrice,
		"subtotal":   newSubtotal,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "swap line item")
	}

	if err := s.recomputeTotal(ctx, tx, order.ID); err != nil {
		return err
	}

	if !record.Status.CanAdvanceTo(enums.ReturnStatusCompleted) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "exchange cannot finish from current status")
	}
	err = s.repo.WithTx(tx).Update(ctx, record.ID, map[string]any{"status": enums.ReturnStatusCompleted})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finish exchange")
	}
	return nil
}

// reverseItems hands each returned quantity back to its batch. A reversal
// never pushes output_qty below zero: when the guarded update misses, the
// remaining consumption is read back and the reversal clamps to it. The
// ledger records the quantity actually applied.
func (s *service) reverseItems(ctx context.Context, tx *gorm.DB, record *models.ReturnExchange, actor types.Actor) error {
	batchRepo := s.batches.WithTx(tx)
	ledgerRepo := s.ledger.WithTx(tx)

	for _, item := range record.Items {
		applied := item.Qty
		ok, err := batchRepo.DecrementOutput(ctx, item.BatchID, item.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse batch stock")
		}
		if !ok {
			batch, err := batchRepo.Find(ctx, item.BatchID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found").
						WithDetails(map[string]any{"batch_id": item.BatchID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch for clamped reversal")
			}
			applied = batch.OutputQty
			if applied > 0 {
				ok, err := batchRepo.DecrementOutput(ctx, item.BatchID, applied)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply clamped reversal")
				}
				if !ok {
					return pkgerrors.New(pkgerrors.CodeConflict, "batch stock changed during reversal").
						WithDetails(map[string]any{"batch_id": item.BatchID})
				}
			}
		}
		if applied == 0 {
			continue
		}

		action := enums.StockActionReturn
		if record.Action == enums.ReturnActionExchange {
			action = enums.StockActionExchange
		}
		movement, err := ledger.NewMovement(item.ProductID, item.BatchID, action, applied, actor)
		if err != nil {
			return err
		}
		movement.OrderID = &record.OrderID
		if err := ledgerRepo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record reversal movement")
		}
		s.metrics.IncMovement(action.String())
	}
	return nil
}

// recomputeTotal reloads the order's line items and stores their exact sum.
func (s *service) recomputeTotal(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	orderRepo := s.orders.WithTx(tx)
	order, err := orderRepo.Find(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order for total")
	}
	if err := orderRepo.Update(ctx, orderID, map[string]any{"total": order.SumItems()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store recomputed total")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ReturnExchange, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return id required")
	}
	record, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return record")
	}
	return record, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReturnExchange, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list return records")
	}
	return rows, nil
}

func findLineItem(items []models.OrderLineItem, productID uuid.UUID) *models.OrderLineItem {
	for i := range items {
		if items[i].ProductID == productID {
			return &items[i]
		}
	}
	return nil
}
