package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/models"
)

type TenantService struct {
	db *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

func (s *TenantService) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrTenantNotFound
	}
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, errors.Wrap(err, "load tenant")
	}
	return &tenant, nil
}

// Create registers a tenant with default settings and the built-in option groups.
// An empty password leaves the admin login disabled.
func (s *TenantService) Create(ctx context.Context, slug, name, password string) (*models.Tenant, error) {
	slug = slugify(slug)
	if slug == "" {
		return nil, invalid("slug", "is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = slug
	}

	tenant := models.Tenant{Slug: slug, Name: name}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		tenant.AdminPasswordHash = hash
	}
	raw, err := json.Marshal(models.DefaultSettings())
	if err != nil {
		return nil, errors.Wrap(err, "encode default settings")
	}
	tenant.Settings = string(raw)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		return EnsureLegacyGroups(tx, tenant.ID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("slug", "already in use")
		}
		return nil, errors.Wrap(err, "create tenant")
	}
	return &tenant, nil
}
