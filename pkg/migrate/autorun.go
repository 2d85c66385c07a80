package migrate

import (
	"context"
	"fmt"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db/models"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
)

// AutoMigrateModels lists every model the schema auto-migration covers.
// Order matters for foreign keys on engines that enforce them at DDL time.
var AutoMigrateModels = []any{
	&models.Product{},
	&models.Batch{},
	&models.StockMovement{},
	&models.PriceChange{},
	&models.Order{},
	&models.OrderLineItem{},
	&models.ReturnExchange{},
	&models.ReturnExchangeItem{},
	&models.OrderCodeSeq{},
}

// MaybeRunDev applies schema migrations on boot when the configuration asks
// for it. Sqlite setups always auto-migrate through GORM since goose only
// supports the Postgres schema files; Postgres setups run the goose chain.
func MaybeRunDev(ctx context.Context, cfg *config.Config, client *db.Client, logg *logger.Logger) error {
	if cfg == nil || client == nil {
		return fmt.Errorf("config and db client are required")
	}
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite || cfg.DB.Driver == "sqlite" {
		if err := client.DB().WithContext(ctx).AutoMigrate(AutoMigrateModels...); err != nil {
			return fmt.Errorf("auto-migrate schema: %w", err)
		}
		if logg != nil {
			logg.Info(ctx, "schema auto-migration complete")
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("get sql db handle: %w", err)
	}
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}
	if logg != nil {
		logg.Info(ctx, "goose migrations applied")
	}
	return nil
}
