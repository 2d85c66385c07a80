package allocator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/internal/batches"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	pkgerrors "github.com/lamnguyen-dev/pharmapos-backend/pkg/errors"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/migrate"
)

func setupAllocatorTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:allocator_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(migrate.AutoMigrateModels...))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func mfg(daysAgo int) time.Time {
	return time.Now().AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour)
}

func makeBatch(productID uuid.UUID, manufactured time.Time, input, output int) models.Batch {
	return models.Batch{
		ID:              uuid.New(),
		ProductID:       productID,
		BatchNumber:     uuid.NewString()[:8],
		ManufactureDate: manufactured,
		InputQty:        input,
		OutputQty:       output,
	}
}

func TestPlanConsumesOldestFirst(t *testing.T) {
	svc, err := NewService(batches.NewRepository(nil))
	require.NoError(t, err)

	productID := uuid.New()
	older := makeBatch(productID, mfg(30), 10, 0)
	newer := makeBatch(productID, mfg(5), 10, 0)

	plan, err := svc.Plan([]models.Batch{older, newer}, 12)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, older.ID, plan[0].BatchID)
	assert.Equal(t, 10, plan[0].Qty)
	assert.Equal(t, newer.ID, plan[1].BatchID)
	assert.Equal(t, 2, plan[1].Qty)
}

func TestPlanSkipsDrainedBatches(t *testing.T) {
	svc, err := NewService(batches.NewRepository(nil))
	require.NoError(t, err)

	productID := uuid.New()
	drained := makeBatch(productID, mfg(30), 10, 10)
	stocked := makeBatch(productID, mfg(5), 10, 0)

	plan, err := svc.Plan([]models.Batch{drained, stocked}, 3)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, stocked.ID, plan[0].BatchID)
}

func TestPlanZeroQuantity(t *testing.T) {
	svc, err := NewService(batches.NewRepository(nil))
	require.NoError(t, err)

	plan, err := svc.Plan([]models.Batch{makeBatch(uuid.New(), mfg(1), 5, 0)}, 0)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlanInsufficientStock(t *testing.T) {
	svc, err := NewService(batches.NewRepository(nil))
	require.NoError(t, err)

	_, err = svc.Plan([]models.Batch{makeBatch(uuid.New(), mfg(1), 5, 2)}, 10)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
}

func TestPlanNegativeQuantity(t *testing.T) {
	svc, err := NewService(batches.NewRepository(nil))
	require.NoError(t, err)

	_, err = svc.Plan(nil, -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAllocateAppliesFIFODeductions(t *testing.T) {
	client := setupAllocatorTestDB(t)
	ctx := context.Background()

	repo := batches.NewRepository(client.DB())
	svc, err := NewService(repo)
	require.NoError(t, err)

	productID := uuid.New()
	older := makeBatch(productID, mfg(20), 20, 0)
	newer := makeBatch(productID, mfg(2), 20, 0)
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		plan, err := svc.Allocate(ctx, tx, productID, 25)
		if err != nil {
			return err
		}
		require.Len(t, plan, 2)
		return nil
	})
	require.NoError(t, err)

	reloadedOlder, err := repo.Find(ctx, older.ID)
	require.NoError(t, err)
	reloadedNewer, err := repo.Find(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloadedOlder.OnHand())
	assert.Equal(t, 15, reloadedNewer.OnHand())
}

func TestAllocateInsufficientRollsBack(t *testing.T) {
	client := setupAllocatorTestDB(t)
	ctx := context.Background()

	repo := batches.NewRepository(client.DB())
	svc, err := NewService(repo)
	require.NoError(t, err)

	productID := uuid.New()
	batch := makeBatch(productID, mfg(10), 5, 0)
	require.NoError(t, repo.Create(ctx, &batch))

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.Allocate(ctx, tx, productID, 6)
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	reloaded, err := repo.Find(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.OnHand())
}
