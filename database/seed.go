package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/utils"
)

// SeedDemo creates a tenant with a small menu when the slug is not taken yet.
func SeedDemo(ctx context.Context, db *gorm.DB, slug, password string) (*models.Tenant, error) {
	tenants := services.NewTenantService(db)
	if existing, err := tenants.BySlug(ctx, slug); err == nil {
		return existing, nil
	} else if !errors.Is(err, services.ErrTenantNotFound) {
		return nil, err
	}

	tenant, err := tenants.Create(ctx, slug, "Demo Kitchen", password)
	if err != nil {
		return nil, err
	}

	var groupA models.OptionGroup
	if err := db.WithContext(ctx).Where("tenant_id = ? AND group_key = ?", tenant.ID, models.LegacyGroupA).First(&groupA).Error; err != nil {
		return nil, errors.Wrap(err, "load seeded group")
	}
	groupA.Options = []string{"Chicharron", "Tinga", "Picadillo"}
	if err := db.WithContext(ctx).Save(&groupA).Error; err != nil {
		return nil, errors.Wrap(err, "seed group options")
	}

	catalog := services.NewCatalogService(db)
	for _, item := range []models.MenuItem{
		{Name: "Gordita", Price: 25, RequiresGroupA: true, PiecesPerUnit: 1, Available: true},
		{Name: "Taco Dorado", Price: 60, RequiresGroupA: true, PiecesPerUnit: 3, Available: true},
		{Name: "Agua Fresca", Price: 20, PiecesPerUnit: 1, Available: true},
	} {
		if _, err := catalog.Create(ctx, tenant.ID, item); err != nil {
			return nil, err
		}
	}
	utils.InfoLogger.WithField("tenant", tenant.Slug).Info("demo tenant seeded")
	return tenant, nil
}
