package batches

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/enums"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/types"
)

func testActor() types.Actor {
	return types.Actor{ID: uuid.New(), Name: "lan.pham"}
}

func newBatchService(t *testing.T, client *db.Client) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(client.DB()),
		products.NewRepository(client.DB()),
		ledger.NewRepository(client.DB()),
		client,
		nil,
	)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, client *db.Client, name string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:          uuid.New(),
		SKU:         uuid.NewString()[:12],
		Name:        name,
		Unit:        "box",
		InputPrice:  decimal.RequireFromString("5.00"),
		OutputPrice: decimal.RequireFromString("9.50"),
		IsActive:    true,
	}
	require.NoError(t, products.NewRepository(client.DB()).Create(context.Background(), product))
	return product
}

func TestReceiveCreatesBatchAndImportMovement(t *testing.T) {
	client := setupBatchesTestDB(t)
	svc := newBatchService(t, client)
	ctx := context.Background()

	product := seedProduct(t, client, "Amoxicillin 250mg")
	actor := testActor()
	receiptRef := "PO-2026-0042"

	batch, err := svc.Receive(ctx, ReceiveInput{
		ProductID:       product.ID,
		BatchNumber:     "LOT-A1",
		ManufactureDate: time.Now().AddDate(0, -1, 0),
		Qty:             50,
		ReceiptRef:      &receiptRef,
		Actor:           actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, batch.InputQty)
	assert.Equal(t, 0, batch.OutputQty)
	assert.Equal(t, 50, batch.OnHand())

	var movements []models.StockMovement
	require.NoError(t, client.DB().Where("batch_id = ?", batch.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.StockActionImport, movements[0].Action)
	assert.Equal(t, 50, movements[0].Qty)
	assert.Equal(t, actor.ID, movements[0].ActorID)
	assert.Equal(t, actor.Name, movements[0].ActorName)
	require.NotNil(t, movements[0].ReceiptRef)
	assert.Equal(t, receiptRef, *movements[0].ReceiptRef)
}

func TestReceiveUnknownProduct(t *testing.T) {
	client := setupBatchesTestDB(t)
	svc := newBatchService(t, client)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{
		ProductID:       uuid.New(),
		BatchNumber:     "LOT-X9",
		ManufactureDate: time.Now().AddDate(0, -1, 0),
		Qty:             10,
		Actor:           testActor(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	// The rolled-back transaction leaves no batch and no ledger row behind.
	var batchCount, movementCount int64
	require.NoError(t, client.DB().Model(&models.Batch{}).Count(&batchCount).Error)
	require.NoError(t, client.DB().Model(&models.StockMovement{}).Count(&movementCount).Error)
	assert.Zero(t, batchCount)
	assert.Zero(t, movementCount)
}

func TestReceiveValidation(t *testing.T) {
	client := setupBatchesTestDB(t)
	svc := newBatchService(t, client)
	ctx := context.Background()

	product := seedProduct(t, client, "Ibuprofen 400mg")

	base := ReceiveInput{
		ProductID:       product.ID,
		BatchNumber:     "LOT-B2",
		ManufactureDate: time.Now().AddDate(0, -1, 0),
		Qty:             10,
		Actor:           testActor(),
	}

	missingProduct := base
	missingProduct.ProductID = uuid.Nil
	_, err := svc.Receive(ctx, missingProduct)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	zeroQty := base
	zeroQty.Qty = 0
	_, err = svc.Receive(ctx, zeroQty)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	expiryBeforeMfg := base
	bad := base.ManufactureDate.AddDate(0, 0, -1)
	expiryBeforeMfg.ExpiryDate = &bad
	_, err = svc.Receive(ctx, expiryBeforeMfg)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	noActor := base
	noActor.Actor = types.Actor{}
	_, err = svc.Receive(ctx, noActor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdjustWritesDirectionalMovement(t *testing.T) {
	client := setupBatchesTestDB(t)
	repo := NewRepository(client.DB())
	svc := newBatchService(t, client)
	ctx := context.Background()

	actor := testActor()
	batch := seedBatch(t, repo, uuid.New(), time.Now().AddDate(0, -2, 0), 20, 5)

	// Positive input delta raises on-hand: an import movement.
	adjusted, err := svc.Adjust(ctx, AdjustInput{BatchID: batch.ID, InputDelta: 4, Actor: actor})
	require.NoError(t, err)
	assert.Equal(t, 24, adjusted.InputQty)
	assert.Equal(t, 19, adjusted.OnHand())

	// Positive output delta lowers on-hand: an export movement.
	adjusted, err = svc.Adjust(ctx, AdjustInput{BatchID: batch.ID, OutputDelta: 3, Actor: actor})
	require.NoError(t, err)
	assert.Equal(t, 8, adjusted.OutputQty)
	assert.Equal(t, 16, adjusted.OnHand())

	var movements []models.StockMovement
	require.NoError(t, client.DB().Where("batch_id = ?", batch.ID).Order("created_at ASC, qty DESC").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, enums.StockActionImport, movements[0].Action)
	assert.Equal(t, 4, movements[0].Qty)
	assert.Equal(t, enums.StockActionExport, movements[1].Action)
	assert.Equal(t, 3, movements[1].Qty)
}

func TestAdjustRejectsInvariantBreak(t *testing.T) {
	client := setupBatchesTestDB(t)
	repo := NewRepository(client.DB())
	svc := newBatchService(t, client)
	ctx := context.Background()

	batch := seedBatch(t, repo, uuid.New(), time.Now().AddDate(0, -2, 0), 10, 8)

	_, err := svc.Adjust(ctx, AdjustInput{BatchID: batch.ID, InputDelta: -5, Actor: testActor()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	// Nothing changed and no ledger row landed.
	reloaded, err := repo.Find(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.InputQty)
	assert.Equal(t, 8, reloaded.OutputQty)

	var count int64
	require.NoError(t, client.DB().Model(&models.StockMovement{}).Where("batch_id = ?", batch.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAdjustUnknownBatch(t *testing.T) {
	client := setupBatchesTestDB(t)
	svc := newBatchService(t, client)

	_, err := svc.Adjust(context.Background(), AdjustInput{BatchID: uuid.New(), InputDelta: 1, Actor: testActor()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
