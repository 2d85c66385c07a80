package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/migrate"
)

func setupOrdersTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(migrate.AutoMigrateModels...))

	// Serialize the pool so concurrent sqlite writers queue instead of
	// failing with a busy error.
	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCodeFormat(t *testing.T) {
	client := setupOrdersTestDB(t)
	gen := NewCodeGenerator("pos")
	day := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)

	var first, second string
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		first, err = gen.Next(context.Background(), tx, day)
		if err != nil {
			return err
		}
		second, err = gen.Next(context.Background(), tx, day)
		return err
	}))

	assert.Equal(t, "POS-20260810-0001", first)
	assert.Equal(t, "POS-20260810-0002", second)
}

func TestCodeSequenceResetsPerDay(t *testing.T) {
	client := setupOrdersTestDB(t)
	gen := NewCodeGenerator("POS")

	monday := time.Date(2026, 8, 10, 23, 59, 0, 0, time.UTC)
	tuesday := time.Date(2026, 8, 11, 0, 1, 0, 0, time.UTC)

	var late, early string
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		if late, err = gen.Next(context.Background(), tx, monday); err != nil {
			return err
		}
		early, err = gen.Next(context.Background(), tx, tuesday)
		return err
	}))

	assert.Equal(t, "POS-20260810-0001", late)
	assert.Equal(t, "POS-20260811-0001", early)
}

func TestCodeDefaultPrefix(t *testing.T) {
	gen := NewCodeGenerator("  ")
	assert.Equal(t, "POS", gen.prefix)
}

func TestConcurrentCodesAreUnique(t *testing.T) {
	client := setupOrdersTestDB(t)
	gen := NewCodeGenerator("POS")
	day := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)

	const workers = 50
	const perWorker = 20

	codes := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
					code, err := gen.Next(context.Background(), tx, day)
					if err != nil {
						return err
					}
					codes <- code
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool, workers*perWorker)
	for code := range codes {
		assert.False(t, seen[code], "duplicate order code %s", code)
		seen[code] = true
	}
	assert.Len(t, seen, workers*perWorker)
}
