package database

import (
	_ "embed"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/utils"
)

//go:embed migrations/history_guard.sql
var historyGuardSQL string

// Migrate creates or updates the schema. On MySQL it also installs the triggers
// that keep the status history append-only.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	return ExecuteTriggers(db, historyGuardSQL)
}

// ExecuteTriggers runs a script whose statements are separated by "//".
func ExecuteTriggers(db *gorm.DB, script string) error {
	for _, stmt := range strings.Split(script, "//") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.WithError(err).WithField("statement", firstLine(stmt)).Error("trigger statement failed")
			return errors.Wrap(err, "execute trigger")
		}
	}
	utils.InfoLogger.Info("history guard triggers installed")
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
