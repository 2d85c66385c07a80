package allocator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/batches"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
)

// Allocation assigns part of a requested quantity to one batch.
type Allocation struct {
	BatchID uuid.UUID
	Qty     int
}

// Service plans and applies first-in-first-out batch consumption. Batches
// drain oldest manufacture date first; insertion order breaks ties. A batch
// is never split beyond its remaining stock.
type Service interface {
	Plan(candidates []models.Batch, qty int) ([]Allocation, error)
	Allocate(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) ([]Allocation, error)
}

type service struct {
	repo batches.Repository
}

// NewService builds an allocator over the batch repository.
func NewService(repo batches.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("batch repository required")
	}
	return &service{repo: repo}, nil
}

// Plan computes the FIFO split without touching storage. Candidates must
// already be in consumption order. A zero quantity yields an empty plan.
func (s *service) Plan(candidates []models.Batch, qty int) ([]Allocation, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity must not be negative")
	}
	if qty == 0 {
		return nil, nil
	}

	remaining := qty
	plan := make([]Allocation, 0, 2)
	for _, batch := range candidates {
		onHand := batch.OnHand()
		if onHand <= 0 {
			continue
		}
		take := onHand
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Allocation{BatchID: batch.ID, Qty: take})
		remaining -= take
		if remaining == 0 {
			return plan, nil
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to satisfy request").
		WithDetails(map[string]any{"requested": qty, "short": remaining})
}

// Allocate plans against the current candidates and applies each step with a
// guarded deduction. A guard miss means another writer consumed the batch
// between planning and applying; that surfaces as a retryable conflict and
// the enclosing transaction rolls back, so partial deductions never commit.
func (s *service) Allocate(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) ([]Allocation, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty == 0 {
		return nil, nil
	}

	repo := s.repo.WithTx(tx)
	candidates, err := repo.ListAllocatable(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list allocatable batches")
	}

	plan, err := s.Plan(candidates, qty)
	if err != nil {
		return nil, err
	}

	for _, step := range plan {
		applied, err := repo.IncrementOutput(ctx, step.BatchID, step.Qty)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct batch stock")
		}
		if !applied {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "batch stock changed during allocation").
				WithDetails(map[string]any{"batch_id": step.BatchID, "qty": step.Qty})
		}
	}
	return plan, nil
}
