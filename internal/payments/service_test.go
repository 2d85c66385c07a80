package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/orders"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/gateway"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/pagination"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

type stubOrders struct {
	order      *models.Order
	confirmed  []orders.ConfirmInput
	confirmErr error
}

func (s *stubOrders) Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) Confirm(ctx context.Context, input orders.ConfirmInput) (*models.Order, error) {
	s.confirmed = append(s.confirmed, input)
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return s.order, nil
}

func (s *stubOrders) Cancel(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrders) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	return s.order, nil
}

func (s *stubOrders) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func newPaymentsService(t *testing.T, stub *stubOrders) (Service, gateway.Signer) {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	client, err := gateway.NewClient(context.Background(), config.GatewayConfig{
		BaseURL:     "https://pay.example.com",
		PartnerCode: "PHARMA01",
		Secret:      "topsecret",
		Timeout:     time.Second,
	}, logg)
	require.NoError(t, err)

	svc, err := NewService(client, stub, nil, logg)
	require.NoError(t, err)
	return svc, client.Signer()
}

func signedCallback(signer gateway.Signer, code string, resultCode int) gateway.Callback {
	cb := gateway.Callback{
		PartnerCode:   "PHARMA01",
		OrderCode:     code,
		RequestID:     "req-1",
		TransactionID: "txn-1",
		ResultCode:    resultCode,
		Amount:        decimal.RequireFromString("99.00"),
	}
	cb.Signature = signer.SignCallback(cb)
	return cb
}

func TestHandleCallbackConfirmsOrder(t *testing.T) {
	stub := &stubOrders{order: &models.Order{
		ID:     uuid.New(),
		Code:   "POS-20260810-0001",
		Status: enums.OrderStatusCompleted,
		Paid:   true,
	}}
	svc, signer := newPaymentsService(t, stub)

	order, err := svc.HandleCallback(context.Background(), signedCallback(signer, "POS-20260810-0001", 0))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.True(t, order.Paid)

	require.Len(t, stub.confirmed, 1)
	assert.Equal(t, "POS-20260810-0001", stub.confirmed[0].Code)
	assert.Equal(t, "txn-1", stub.confirmed[0].TransactionID)
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	stub := &stubOrders{}
	svc, signer := newPaymentsService(t, stub)

	cb := signedCallback(signer, "POS-20260810-0002", 0)
	cb.Amount = decimal.RequireFromString("0.01")

	_, err := svc.HandleCallback(context.Background(), cb)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSignatureMismatch))
	assert.Empty(t, stub.confirmed, "no confirmation on a rejected callback")
}

func TestHandleCallbackFailureResultChangesNothing(t *testing.T) {
	stub := &stubOrders{}
	svc, signer := newPaymentsService(t, stub)

	order, err := svc.HandleCallback(context.Background(), signedCallback(signer, "POS-20260810-0003", 1006))
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Empty(t, stub.confirmed)
}

func TestCreateIntentGuards(t *testing.T) {
	orderID := uuid.New()

	cases := []struct {
		name  string
		order *models.Order
		code  pkgerrors.Code
	}{
		{"non gateway method", &models.Order{
			ID: orderID, PaymentMethod: enums.PaymentMethodCash, Status: enums.OrderStatusPending,
		}, pkgerrors.CodeValidation},
		{"already paid", &models.Order{
			ID: orderID, PaymentMethod: enums.PaymentMethodGateway, Paid: true, Status: enums.OrderStatusPending,
		}, pkgerrors.CodeStateConflict},
		{"cancelled", &models.Order{
			ID: orderID, PaymentMethod: enums.PaymentMethodGateway, Status: enums.OrderStatusCancelled,
		}, pkgerrors.CodeStateConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newPaymentsService(t, &stubOrders{order: tc.order})
			_, err := svc.CreateIntent(context.Background(), orderID)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code))
		})
	}
}

func TestCreateIntentUnknownOrder(t *testing.T) {
	svc, _ := newPaymentsService(t, &stubOrders{})
	_, err := svc.CreateIntent(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
