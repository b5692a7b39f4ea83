package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/utils"
)

const minPasswordLength = 8

// HashPassword returns the bcrypt hash stored for a tenant's admin.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalid("password", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// CredentialService checks admin passwords and issues admin tokens.
type CredentialService struct {
	db     *gorm.DB
	tokens *utils.TokenIssuer
}

func NewCredentialService(db *gorm.DB, tokens *utils.TokenIssuer) *CredentialService {
	return &CredentialService{db: db, tokens: tokens}
}

// Verify compares the password with the tenant's stored hash.
func (s *CredentialService) Verify(ctx context.Context, tenantID uint, password string) error {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Select("id", "admin_password_hash").First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return errors.Wrap(err, "load credential")
	}
	if tenant.AdminPasswordHash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tenant.AdminPasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies the password and returns a signed admin token for the tenant.
func (s *CredentialService) Login(ctx context.Context, tenantID uint, password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrInvalidCredentials
	}
	if err := s.Verify(ctx, tenantID, password); err != nil {
		return "", err
	}
	token, err := s.tokens.Generate(tenantID)
	if err != nil {
		return "", errors.Wrap(err, "issue token")
	}
	return token, nil
}

func (s *CredentialService) SetPassword(ctx context.Context, tenantID uint, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", tenantID).Update("admin_password_hash", hash)
	if res.Error != nil {
		return errors.Wrap(res.Error, "store password")
	}
	if res.RowsAffected == 0 {
		return ErrTenantNotFound
	}
	return nil
}
