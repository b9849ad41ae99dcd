package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/models"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// EnsureCatalogIndexes adds indexes gorm tags cannot express.
func EnsureCatalogIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_product_type_one_draft
		ON product_type (key)
		WHERE status = 'draft';
	`).Error; err != nil {
		return fmt.Errorf("create idx_product_type_one_draft: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_enum_option_attr_position
		ON enum_attribute_option (attribute_id, position);
	`).Error; err != nil {
		return fmt.Errorf("create idx_enum_option_attr_position: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating catalog tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureCatalogIndexes(s.db); err != nil {
		s.log.Error("Catalog index migration failed", "error", err)
		return err
	}
	return nil
}
