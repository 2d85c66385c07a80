package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

// Service exposes the read side of the audit ledger.
type Service interface {
	ListProductMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementList, error)
	ListOrderMovements(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error)
	ListProductPriceChanges(ctx context.Context, productID uuid.UUID, params pagination.Params) (*PriceChangeList, error)
}

type service struct {
	repo Repository
}

// NewService builds the ledger read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProductMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementList, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	list, err := s.repo.ListMovementsByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	return list, nil
}

func (s *service) ListOrderMovements(ctx context.Context, orderID uuid.UUID) ([]models.StockMovement, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	rows, err := s.repo.ListMovementsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order movements")
	}
	return rows, nil
}

func (s *service) ListProductPriceChanges(ctx context.Context, productID uuid.UUID, params pagination.Params) (*PriceChangeList, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	list, err := s.repo.ListPriceChangesByProduct(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price changes")
	}
	return list, nil
}

// NewMovement builds a validated ledger row. Callers persist it inside the
// same transaction as the batch mutation it records.
func NewMovement(productID, batchID uuid.UUID, action enums.StockAction, qty int, actor types.Actor) (*models.StockMovement, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock action")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement quantity must be positive")
	}
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor identity required")
	}
	return &models.StockMovement{
		ID:        uuid.New(),
		ProductID: productID,
		BatchID:   batchID,
		Action:    action,
		Qty:       qty,
		ActorID:   actor.ID,
		ActorName: actor.Name,
	}, nil
}
