package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/catalog-backend/internal/data/models"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type SnapshotRepo interface {
	// Upsert stores the compiled snapshot, replacing any previous one for the
	// same product type.
	Upsert(ctx context.Context, tx *gorm.DB, snap *index.Snapshot) error
	// Get returns nil, nil when no snapshot was stored. A payload that fails to
	// decode or self-check surfaces as an invalid-state error.
	Get(ctx context.Context, tx *gorm.DB, productTypeID uuid.UUID) (*index.Snapshot, error)
	Delete(ctx context.Context, tx *gorm.DB, productTypeID uuid.UUID) error
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) Upsert(ctx context.Context, tx *gorm.DB, snap *index.Snapshot) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if snap == nil {
		return nil
	}
	payload, err := snap.Marshal()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	row := &models.CatalogIndexSnapshot{
		ProductTypeID: snap.ProductTypeID,
		Version:       snap.Version,
		Payload:       datatypes.JSON(payload),
		BuiltAt:       snap.BuiltAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_type_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "payload", "built_at", "updated_at"}),
		}).
		Create(row).Error
}

func (r *snapshotRepo) Get(ctx context.Context, tx *gorm.DB, productTypeID uuid.UUID) (*index.Snapshot, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if productTypeID == uuid.Nil {
		return nil, nil
	}
	var row models.CatalogIndexSnapshot
	if err := t.WithContext(ctx).Where("product_type_id = ?", productTypeID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return index.UnmarshalSnapshot(row.Payload)
}

func (r *snapshotRepo) Delete(ctx context.Context, tx *gorm.DB, productTypeID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if productTypeID == uuid.Nil {
		return nil
	}
	return t.WithContext(ctx).Where("product_type_id = ?", productTypeID).Delete(&models.CatalogIndexSnapshot{}).Error
}
