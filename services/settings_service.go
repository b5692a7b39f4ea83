package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/models"
)

// SettingsService is the per-tenant configuration store: typed business
// settings plus the option groups used by the extras flow.
type SettingsService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewSettingsService(db *gorm.DB, log logrus.FieldLogger) *SettingsService {
	return &SettingsService{db: db, log: log}
}

// Get decodes the tenant's settings. Documents stored under an older schema are
// migrated and written back once; legacy option pools found in them fill the
// built-in groups.
func (s *SettingsService) Get(ctx context.Context, tenantID uint) (models.TenantSettings, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Select("id", "settings").First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TenantSettings{}, ErrTenantNotFound
		}
		return models.TenantSettings{}, errors.Wrap(err, "load settings")
	}

	settings, pools, err := models.MigrateSettings(tenant.Settings)
	if err != nil {
		return models.TenantSettings{}, errors.Wrap(err, "migrate settings")
	}
	if storedVersion(tenant.Settings) == models.SettingsSchemaVersion {
		return settings, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureLegacyGroups(tx, tenantID); err != nil {
			return err
		}
		if err := fillLegacyPool(tx, tenantID, models.LegacyGroupA, pools.GroupA); err != nil {
			return err
		}
		if err := fillLegacyPool(tx, tenantID, models.LegacyGroupB, pools.GroupB); err != nil {
			return err
		}
		return saveSettings(tx, tenantID, settings)
	})
	if err != nil {
		return models.TenantSettings{}, errors.Wrap(err, "persist migrated settings")
	}
	s.log.WithField("tenant_id", tenantID).Info("settings migrated to current schema")
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, tenantID uint, settings models.TenantSettings) (models.TenantSettings, error) {
	settings.Version = models.SettingsSchemaVersion
	if err := settings.Validate(); err != nil {
		return models.TenantSettings{}, invalid("settings", err.Error())
	}
	if err := saveSettings(s.db.WithContext(ctx), tenantID, settings); err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return models.TenantSettings{}, err
		}
		return models.TenantSettings{}, errors.Wrap(err, "save settings")
	}
	return settings, nil
}

func (s *SettingsService) OptionGroups(ctx context.Context, tenantID uint) ([]models.OptionGroup, error) {
	var groups []models.OptionGroup
	if err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, errors.Wrap(err, "list option groups")
	}
	return groups, nil
}

type OptionGroupInput struct {
	Key           string   `json:"key"`
	Name          string   `json:"name" binding:"required"`
	Options       []string `json:"options"`
	AllowMultiple *bool    `json:"allow_multiple"`
	Required      *bool    `json:"required"`
}

func (s *SettingsService) CreateOptionGroup(ctx context.Context, tenantID uint, in OptionGroupInput) (*models.OptionGroup, error) {
	group := models.OptionGroup{TenantID: tenantID, AllowMultiple: true, Required: true}
	if err := applyGroupInput(&group, in); err != nil {
		return nil, err
	}
	if group.Key == "" {
		group.Key = slugify(group.Name)
	}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("key", "already in use")
		}
		return nil, errors.Wrap(err, "create option group")
	}
	return &group, nil
}

func (s *SettingsService) UpdateOptionGroup(ctx context.Context, tenantID, groupID uint, in OptionGroupInput) (*models.OptionGroup, error) {
	var group models.OptionGroup
	if err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", groupID, tenantID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOptionGroupNotFound
		}
		return nil, errors.Wrap(err, "load option group")
	}
	key := group.Key
	if err := applyGroupInput(&group, in); err != nil {
		return nil, err
	}
	if isLegacyKey(key) {
		group.Key = key
	}
	if group.Key == "" {
		group.Key = key
	}
	if err := s.db.WithContext(ctx).Save(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("key", "already in use")
		}
		return nil, errors.Wrap(err, "update option group")
	}
	return &group, nil
}

func (s *SettingsService) DeleteOptionGroup(ctx context.Context, tenantID, groupID uint) error {
	var group models.OptionGroup
	if err := s.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", groupID, tenantID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOptionGroupNotFound
		}
		return errors.Wrap(err, "load option group")
	}
	if isLegacyKey(group.Key) {
		return ErrLegacyGroup
	}
	if err := s.db.WithContext(ctx).Delete(&group).Error; err != nil {
		return errors.Wrap(err, "delete option group")
	}
	return nil
}

// EnsureLegacyGroups seeds the two built-in groups for a tenant when missing.
func EnsureLegacyGroups(tx *gorm.DB, tenantID uint) error {
	for _, seed := range []models.OptionGroup{
		{TenantID: tenantID, Key: models.LegacyGroupA, Name: "Guisos", AllowMultiple: true, Required: true},
		{TenantID: tenantID, Key: models.LegacyGroupB, Name: "Salsas", AllowMultiple: true, Required: true},
	} {
		group := seed
		if err := tx.Where("tenant_id = ? AND group_key = ?", tenantID, seed.Key).
			Attrs(models.OptionGroup{Name: seed.Name, AllowMultiple: true, Required: true, Options: []string{}}).
			FirstOrCreate(&group).Error; err != nil {
			return err
		}
	}
	return nil
}

func fillLegacyPool(tx *gorm.DB, tenantID uint, key string, options []string) error {
	if len(options) == 0 {
		return nil
	}
	var group models.OptionGroup
	if err := tx.Where("tenant_id = ? AND group_key = ?", tenantID, key).First(&group).Error; err != nil {
		return err
	}
	group.Options = cleanOptions(options)
	return tx.Save(&group).Error
}

func saveSettings(tx *gorm.DB, tenantID uint, settings models.TenantSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	res := tx.Model(&models.Tenant{}).Where("id = ?", tenantID).Update("settings", string(raw))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func storedVersion(raw string) int {
	var probe struct {
		Version int `json:"version"`
	}
	if strings.TrimSpace(raw) == "" || json.Unmarshal([]byte(raw), &probe) != nil {
		return 0
	}
	return probe.Version
}

func applyGroupInput(group *models.OptionGroup, in OptionGroupInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	group.Name = name
	group.Key = slugify(in.Key)
	group.Options = cleanOptions(in.Options)
	if in.AllowMultiple != nil {
		group.AllowMultiple = *in.AllowMultiple
	}
	if in.Required != nil {
		group.Required = *in.Required
	}
	return nil
}

// cleanOptions trims entries and drops blanks and duplicates, keeping order.
func cleanOptions(options []string) []string {
	out := make([]string, 0, len(options))
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		out = append(out, opt)
	}
	return out
}

func isLegacyKey(key string) bool {
	return key == models.LegacyGroupA || key == models.LegacyGroupB
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		case !lastDash && sb.Len() > 0:
			sb.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
