package batches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines batch-level inventory operations. Every mutation writes a
// matching ledger row in the same transaction.
type Service interface {
	Receive(ctx context.Context, input ReceiveInput) (*models.Batch, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Batch, error)
	ListExpiring(ctx context.Context, within time.Duration) ([]models.Batch, error)
}

type service struct {
	repo     Repository
	products products.Repository
	ledger   ledger.Repository
	tx       txRunner
	metrics  *metrics.InventoryMetrics
}

// NewService builds a batch service with the required dependencies.
func NewService(repo Repository, productRepo products.Repository, ledgerRepo ledger.Repository, tx txRunner, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batch repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productRepo, ledger: ledgerRepo, tx: tx, metrics: m}, nil
}

func (s *service) Receive(ctx context.Context, input ReceiveInput) (*models.Batch, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if strings.TrimSpace(input.BatchNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch number required")
	}
	if input.ManufactureDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manufacture date required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity must be positive")
	}
	if input.ExpiryDate != nil && !input.ExpiryDate.After(input.ManufactureDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry date must be after manufacture date")
	}
	if input.Actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}

	batch := &models.Batch{
		ID:              uuid.New(),
		ProductID:       input.ProductID,
		BatchNumber:     strings.TrimSpace(input.BatchNumber),
		ManufactureDate: input.ManufactureDate,
		ExpiryDate:      input.ExpiryDate,
		InputQty:        input.Qty,
		OutputQty:       0,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.products.WithTx(tx).Find(ctx, input.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": input.ProductID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if err := s.repo.WithTx(tx).Create(ctx, batch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
		}
		movement, err := ledger.NewMovement(batch.ProductID, batch.ID, enums.StockActionImport, input.Qty, input.Actor)
		if err != nil {
			return err
		}
		movement.ReceiptRef = input.ReceiptRef
		movement.Note = input.Note
		if err := s.ledger.WithTx(tx).CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record import movement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMovement(enums.StockActionImport.String())
	return batch, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.Batch, error) {
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if input.InputDelta == 0 && input.OutputDelta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment deltas are both zero")
	}
	if input.Actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}

	var adjusted *models.Batch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		batch, err := repo.Find(ctx, input.BatchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
		}

		applied, err := repo.AdjustQuantities(ctx, input.BatchID, input.InputDelta, input.OutputDelta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust batch quantities")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "adjustment would break batch quantity bounds")
		}

		// The net on-hand delta decides the ledger direction.
		net := input.InputDelta - input.OutputDelta
		action := enums.StockActionImport
		if net < 0 {
			action = enums.StockActionExport
			net = -net
		}
		if net > 0 {
			movement, err := ledger.NewMovement(batch.ProductID, batch.ID, action, net, input.Actor)
			if err != nil {
				return err
			}
			movement.Note = input.Note
			if err := s.ledger.WithTx(tx).CreateMovement(ctx, movement); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record adjustment movement")
			}
			s.metrics.IncMovement(action.String())
		}

		adjusted, err = repo.Find(ctx, input.BatchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload batch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	batch, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	return batch, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Batch, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batches")
	}
	return rows, nil
}

func (s *service) ListExpiring(ctx context.Context, within time.Duration) ([]models.Batch, error) {
	if within <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry window must be positive")
	}
	rows, err := s.repo.ListExpiring(ctx, time.Now().Add(within))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expiring batches")
	}
	return rows, nil
}
