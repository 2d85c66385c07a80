package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/orders"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/gateway"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/metrics"
)

// Service bridges the payment gateway and the order orchestrator. Inbound
// callbacks are verified before any state change; a valid success callback
// confirms the order, and re-deliveries are acknowledged without re-applying.
type Service interface {
	CreateIntent(ctx context.Context, orderID uuid.UUID) (*gateway.IntentResponse, error)
	HandleCallback(ctx context.Context, cb gateway.Callback) (*models.Order, error)
}

type service struct {
	client  *gateway.Client
	orders  orders.Service
	metrics *metrics.InventoryMetrics
	logger  *logger.Logger
}

// NewService builds the payments service with the required dependencies.
func NewService(client *gateway.Client, orderSvc orders.Service, m *metrics.InventoryMetrics, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{client: client, orders: orderSvc, metrics: m, logger: logg}, nil
}

func (s *service) CreateIntent(ctx context.Context, orderID uuid.UUID) (*gateway.IntentResponse, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a gateway payment")
	}
	if order.Paid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can request payment")
	}

	intent, err := s.client.CreatePaymentIntent(ctx, gateway.IntentRequest{
		OrderCode: order.Code,
		Amount:    order.Total,
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *service) HandleCallback(ctx context.Context, cb gateway.Callback) (*models.Order, error) {
	logCtx := s.logger.WithFields(ctx, map[string]any{
		"order_code":  cb.OrderCode,
		"result_code": cb.ResultCode,
	})

	if err := s.client.Signer().VerifyCallback(cb); err != nil {
		s.metrics.IncCallback("rejected")
		s.logger.Warn(logCtx, "payment callback signature rejected")
		return nil, err
	}

	// A failed payment is acknowledged but changes nothing; the draft stays
	// pending for a later attempt or cancellation.
	if cb.ResultCode != 0 {
		s.metrics.IncCallback("failed")
		s.logger.Warn(logCtx, "payment callback reported failure")
		return nil, nil
	}

	order, err := s.orders.Confirm(ctx, orders.ConfirmInput{
		Code:          cb.OrderCode,
		TransactionID: cb.TransactionID,
	})
	if err != nil {
		s.metrics.IncCallback("error")
		return nil, err
	}

	s.metrics.IncCallback("confirmed")
	s.logger.Info(logCtx, "payment callback confirmed order")
	return order, nil
}
