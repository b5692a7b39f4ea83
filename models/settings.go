package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SettingsSchemaVersion is the current layout of TenantSettings.
const SettingsSchemaVersion = 2

var settingsValidator = validator.New()

// TenantSettings is the typed business configuration stored per tenant.
type TenantSettings struct {
	Version  int              `json:"version"`
	Payment  PaymentSettings  `json:"payment"`
	Delivery DeliverySettings `json:"delivery"`
	Contact  ContactInfo      `json:"contact"`
}

type PaymentSettings struct {
	Cash       bool     `json:"cash"`
	Terminal   bool     `json:"terminal"`
	CardBrands []string `json:"card_brands" validate:"dive,oneof=visa mastercard amex carnet"`
}

type DeliverySettings struct {
	PostalCodes []string `json:"postal_codes" validate:"dive,numeric,min=4,max=10"`
}

type ContactInfo struct {
	Phone    string `json:"phone" validate:"omitempty,numeric,min=7,max=15"`
	WhatsApp string `json:"whatsapp" validate:"omitempty,numeric,min=7,max=15"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address"`
}

// DefaultSettings accepts cash only and delivers everywhere.
func DefaultSettings() TenantSettings {
	return TenantSettings{
		Version: SettingsSchemaVersion,
		Payment: PaymentSettings{Cash: true},
	}
}

func (s TenantSettings) Validate() error {
	if !s.Payment.Cash && !s.Payment.Terminal {
		return fmt.Errorf("at least one payment method must be enabled")
	}
	return settingsValidator.Struct(s)
}

func (s TenantSettings) Accepts(method PaymentMethod) bool {
	switch method {
	case PaymentCash:
		return s.Payment.Cash
	case PaymentTerminal:
		return s.Payment.Terminal
	}
	return false
}

// ServesPostalCode is true when no zones are configured or the code is listed.
func (s TenantSettings) ServesPostalCode(code string) bool {
	if len(s.Delivery.PostalCodes) == 0 {
		return true
	}
	code = strings.TrimSpace(code)
	for _, pc := range s.Delivery.PostalCodes {
		if pc == code {
			return true
		}
	}
	return false
}

// LegacyPools carries option lists found in a v1 document. They are turned into
// OptionGroup rows by the caller.
type LegacyPools struct {
	GroupA []string
	GroupB []string
}

// v1 stored every field as loosely typed text, several of them JSON-encoded strings.
type settingsV1 struct {
	PaymentMethods string `json:"payment_methods"`
	CardBrands     string `json:"card_brands"`
	PostalCodes    string `json:"postal_codes"`
	Phone          string `json:"phone"`
	WhatsApp       string `json:"whatsapp"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	Guisos         string `json:"guisos"`
	Salsas         string `json:"salsas"`
}

// MigrateSettings decodes a stored settings document of any known version into
// the current schema.
func MigrateSettings(raw string) (TenantSettings, LegacyPools, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultSettings(), LegacyPools{}, nil
	}

	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode settings: %w", err)
	}

	switch probe.Version {
	case SettingsSchemaVersion:
		var s TenantSettings
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode settings v2: %w", err)
		}
		return s, LegacyPools{}, nil
	case 0, 1:
		return migrateV1(raw)
	default:
		return TenantSettings{}, LegacyPools{}, fmt.Errorf("unsupported settings version %d", probe.Version)
	}
}

func migrateV1(raw string) (TenantSettings, LegacyPools, error) {
	var old settingsV1
	if err := json.Unmarshal([]byte(raw), &old); err != nil {
		return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode settings v1: %w", err)
	}

	s := DefaultSettings()
	if old.PaymentMethods != "" {
		var methods map[string]bool
		if err := json.Unmarshal([]byte(old.PaymentMethods), &methods); err != nil {
			return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode payment_methods: %w", err)
		}
		s.Payment.Cash = methods["cash"] || methods["efectivo"]
		s.Payment.Terminal = methods["terminal"] || methods["tarjeta"]
	}
	s.Payment.CardBrands = splitList(old.CardBrands)
	for i, brand := range s.Payment.CardBrands {
		s.Payment.CardBrands[i] = strings.ToLower(brand)
	}

	codes, err := decodeTextList(old.PostalCodes)
	if err != nil {
		return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode postal_codes: %w", err)
	}
	s.Delivery.PostalCodes = codes

	s.Contact = ContactInfo{
		Phone:    old.Phone,
		WhatsApp: old.WhatsApp,
		Email:    old.Email,
		Address:  old.Address,
	}

	var pools LegacyPools
	if pools.GroupA, err = decodeTextList(old.Guisos); err != nil {
		return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode guisos: %w", err)
	}
	if pools.GroupB, err = decodeTextList(old.Salsas); err != nil {
		return TenantSettings{}, LegacyPools{}, fmt.Errorf("decode salsas: %w", err)
	}
	return s, pools, nil
}

// decodeTextList accepts either a JSON array or a comma separated list.
func decodeTextList(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if strings.HasPrefix(text, "[") {
		var out []string
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return splitList(text), nil
}

func splitList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
