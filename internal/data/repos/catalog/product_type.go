package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/models"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

// maxAncestry bounds parent resolution; parents are created before children so
// a deeper chain means corrupt data.
const maxAncestry = 32

type ProductTypeRepo interface {
	// Create inserts the header and own schema rows of a new product type.
	Create(ctx context.Context, tx *gorm.DB, pt *types.ProductType) error
	// SaveSchema replaces every own schema row of pt. The header is untouched;
	// header writes go through the lock_version guard.
	SaveSchema(ctx context.Context, tx *gorm.DB, pt *types.ProductType) error

	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, lookups *types.LookupCatalog) (*types.ProductType, error)
	GetLatestByKey(ctx context.Context, tx *gorm.DB, key string, lookups *types.LookupCatalog) (*types.ProductType, error)
	GetHeader(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ProductType, error)
	ListLatest(ctx context.Context, tx *gorm.DB) ([]*models.ProductType, error)
	ListVersions(ctx context.Context, tx *gorm.DB, key string) ([]*models.ProductType, error)
}

type productTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductTypeRepo(db *gorm.DB, baseLog *logger.Logger) ProductTypeRepo {
	return &productTypeRepo{db: db, log: baseLog.With("repo", "ProductTypeRepo")}
}

func (r *productTypeRepo) Create(ctx context.Context, tx *gorm.DB, pt *types.ProductType) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if pt == nil {
		return nil
	}
	if err := t.WithContext(ctx).Create(productTypeRow(pt)).Error; err != nil {
		return err
	}
	return r.insertSchema(ctx, t, pt)
}

func (r *productTypeRepo) SaveSchema(ctx context.Context, tx *gorm.DB, pt *types.ProductType) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if pt == nil {
		return nil
	}
	var attrIDs []uuid.UUID
	if err := t.WithContext(ctx).
		Model(&models.AttributeDefinition{}).
		Where("product_type_id = ?", pt.ID).
		Pluck("id", &attrIDs).Error; err != nil {
		return err
	}
	if len(attrIDs) > 0 {
		if err := t.WithContext(ctx).Where("attribute_id IN ?", attrIDs).Delete(&models.EnumAttributeOption{}).Error; err != nil {
			return err
		}
		if err := t.WithContext(ctx).Where("group_id IN ?", attrIDs).Delete(&models.AttributeGroupMember{}).Error; err != nil {
			return err
		}
		if err := t.WithContext(ctx).Where("id IN ?", attrIDs).Delete(&models.AttributeDefinition{}).Error; err != nil {
			return err
		}
	}
	if err := t.WithContext(ctx).Where("product_type_id = ?", pt.ID).Delete(&models.LookupAllowed{}).Error; err != nil {
		return err
	}
	return r.insertSchema(ctx, t, pt)
}

func (r *productTypeRepo) insertSchema(ctx context.Context, t *gorm.DB, pt *types.ProductType) error {
	rows, err := toSchemaRows(pt)
	if err != nil {
		return err
	}
	if len(rows.attributes) > 0 {
		if err := t.WithContext(ctx).Create(&rows.attributes).Error; err != nil {
			return err
		}
	}
	if len(rows.options) > 0 {
		if err := t.WithContext(ctx).Create(&rows.options).Error; err != nil {
			return err
		}
	}
	if len(rows.members) > 0 {
		if err := t.WithContext(ctx).Create(&rows.members).Error; err != nil {
			return err
		}
	}
	if len(rows.allowed) > 0 {
		if err := t.WithContext(ctx).Create(&rows.allowed).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *productTypeRepo) GetHeader(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ProductType, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row models.ProductType
	if err := t.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByID loads the product type with its own schema and the materialized
// attributes of every ancestor. Returns nil, nil when absent.
func (r *productTypeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, lookups *types.LookupCatalog) (*types.ProductType, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	return r.load(ctx, t, id, lookups, 0)
}

func (r *productTypeRepo) load(ctx context.Context, t *gorm.DB, id uuid.UUID, lookups *types.LookupCatalog, depth int) (*types.ProductType, error) {
	if depth > maxAncestry {
		return nil, types.NewStateError("ProductTypeRepo.GetByID", "product type ancestry too deep", "product_type_id", id.String())
	}
	header, err := r.GetHeader(ctx, t, id)
	if err != nil || header == nil {
		return nil, err
	}
	rows, err := r.loadSchemaRows(ctx, t, id)
	if err != nil {
		return nil, err
	}
	pt, err := fromRows(header, rows, lookups)
	if err != nil {
		return nil, err
	}
	if header.ParentID != nil {
		parent, err := r.load(ctx, t, *header.ParentID, lookups, depth+1)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, types.NewStateError("ProductTypeRepo.GetByID", "parent product type missing",
				"product_type", header.Key, "parent_id", header.ParentID.String())
		}
		pt.Inherited = parent.AllAttributes()
		pt.InheritedAllowed = parent.EffectiveAllowLists()
	}
	return pt, nil
}

func (r *productTypeRepo) loadSchemaRows(ctx context.Context, t *gorm.DB, id uuid.UUID) (*schemaRows, error) {
	rows := &schemaRows{}
	if err := t.WithContext(ctx).
		Where("product_type_id = ?", id).
		Order("position ASC, key ASC").
		Find(&rows.attributes).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows.attributes))
	for _, a := range rows.attributes {
		ids = append(ids, a.ID)
	}
	if len(ids) > 0 {
		if err := t.WithContext(ctx).
			Where("attribute_id IN ?", ids).
			Order("position ASC, code ASC").
			Find(&rows.options).Error; err != nil {
			return nil, err
		}
		if err := t.WithContext(ctx).
			Where("group_id IN ?", ids).
			Order("ordinal ASC").
			Find(&rows.members).Error; err != nil {
			return nil, err
		}
	}
	if err := t.WithContext(ctx).Where("product_type_id = ?", id).Find(&rows.allowed).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *productTypeRepo) GetLatestByKey(ctx context.Context, tx *gorm.DB, key string, lookups *types.LookupCatalog) (*types.ProductType, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if key == "" {
		return nil, nil
	}
	var row models.ProductType
	if err := t.WithContext(ctx).
		Where("key = ?", key).
		Order("version DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.load(ctx, t, row.ID, lookups, 0)
}

// ListLatest returns the highest version of every product type key.
func (r *productTypeRepo) ListLatest(ctx context.Context, tx *gorm.DB) ([]*models.ProductType, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*models.ProductType
	latest := t.Session(&gorm.Session{NewDB: true}).
		Model(&models.ProductType{}).
		Select("key, MAX(version)").
		Group("key")
	if err := t.WithContext(ctx).
		Where("(key, version) IN (?)", latest).
		Order("key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productTypeRepo) ListVersions(ctx context.Context, tx *gorm.DB, key string) ([]*models.ProductType, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*models.ProductType
	if key == "" {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("key = ?", key).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
