package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/cart"
	"github.com/yeremiapane/storefront-orders/models"
)

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// List returns the tenant's menu. Public callers pass onlyAvailable=true.
func (s *CatalogService) List(ctx context.Context, tenantID uint, onlyAvailable bool) ([]models.MenuItem, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if onlyAvailable {
		q = q.Where("available = ?", true)
	}
	var items []models.MenuItem
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return items, nil
}

func (s *CatalogService) Get(ctx context.Context, tenantID, itemID uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", itemID, tenantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuItemNotFound
		}
		return nil, errors.Wrap(err, "get menu item")
	}
	return &item, nil
}

func (s *CatalogService) Create(ctx context.Context, tenantID uint, item models.MenuItem) (*models.MenuItem, error) {
	item.ID = 0
	item.TenantID = tenantID
	if err := s.check(ctx, &item); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, errors.Wrap(err, "create menu item")
	}
	return &item, nil
}

func (s *CatalogService) Update(ctx context.Context, tenantID, itemID uint, item models.MenuItem) (*models.MenuItem, error) {
	existing, err := s.Get(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	item.ID = existing.ID
	item.TenantID = tenantID
	item.CreatedAt = existing.CreatedAt
	if err := s.check(ctx, &item); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, errors.Wrap(err, "update menu item")
	}
	return &item, nil
}

func (s *CatalogService) Delete(ctx context.Context, tenantID, itemID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", itemID, tenantID).Delete(&models.MenuItem{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete menu item")
	}
	if res.RowsAffected == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

// CartItem converts a catalog entry into the snapshot the cart stores.
func CartItem(m models.MenuItem) cart.Item {
	return cart.Item{
		ID:             m.ID,
		Name:           m.Name,
		UnitPrice:      m.EffectivePrice(),
		ImageRef:       m.ImageRef,
		RequiresGroupA: m.RequiresGroupA,
		RequiresGroupB: m.RequiresGroupB,
		ExtraGroupIDs:  append([]uint(nil), m.ExtraGroupIDs...),
		PiecesPerUnit:  m.PiecesPerUnit,
	}
}

func (s *CatalogService) check(ctx context.Context, item *models.MenuItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return invalid("name", "is required")
	}
	if item.Price < 0 {
		return invalid("price", "cannot be negative")
	}
	if item.DiscountPercent < 0 || item.DiscountPercent > 100 {
		return invalid("discount_percent", "must be between 0 and 100")
	}
	if item.PiecesPerUnit < 1 {
		item.PiecesPerUnit = 1
	}
	if item.PiecesPerUnit > cart.MaxPiecesPerUnit {
		return invalid("pieces_per_unit", fmt.Sprintf("must be at most %d", cart.MaxPiecesPerUnit))
	}
	ids := dedupeIDs(item.ExtraGroupIDs)
	item.ExtraGroupIDs = ids
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.OptionGroup{}).
		Where("tenant_id = ? AND id IN ?", item.TenantID, ids).
		Count(&count).Error; err != nil {
		return errors.Wrap(err, "check option groups")
	}
	if int(count) != len(ids) {
		return invalid("extra_group_ids", "references an unknown option group")
	}
	return nil
}

func dedupeIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
