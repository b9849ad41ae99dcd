package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/catalog-backend/internal/data/models"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type LookupRepo interface {
	CreateType(ctx context.Context, tx *gorm.DB, lt *types.LookupType) error
	CreateOption(ctx context.Context, tx *gorm.DB, o *types.LookupOption) error
	// CreateLink is idempotent on the (parent, child) option pair.
	CreateLink(ctx context.Context, tx *gorm.DB, l *types.LookupLink) error
	// LoadCatalog reads every lookup type, option and link.
	LoadCatalog(ctx context.Context, tx *gorm.DB) (*types.LookupCatalog, error)
}

type lookupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLookupRepo(db *gorm.DB, baseLog *logger.Logger) LookupRepo {
	return &lookupRepo{db: db, log: baseLog.With("repo", "LookupRepo")}
}

func (r *lookupRepo) CreateType(ctx context.Context, tx *gorm.DB, lt *types.LookupType) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if lt == nil {
		return nil
	}
	row := &models.LookupType{ID: lt.ID, Key: lt.Key, Name: lt.Name, OpenConstraint: lt.OpenConstraint}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	for _, o := range lt.Options {
		if err := r.CreateOption(ctx, t, o); err != nil {
			return err
		}
	}
	return nil
}

func (r *lookupRepo) CreateOption(ctx context.Context, tx *gorm.DB, o *types.LookupOption) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if o == nil {
		return nil
	}
	row := &models.LookupOption{ID: o.ID, LookupTypeID: o.LookupTypeID, Code: o.Code, Label: o.Label, Position: o.Position}
	return t.WithContext(ctx).Create(row).Error
}

func (r *lookupRepo) CreateLink(ctx context.Context, tx *gorm.DB, l *types.LookupLink) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if l == nil {
		return nil
	}
	row := &models.LookupLink{ID: l.ID, ParentOptionID: l.ParentOptionID, ChildOptionID: l.ChildOptionID}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parent_option_id"}, {Name: "child_option_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *lookupRepo) LoadCatalog(ctx context.Context, tx *gorm.DB) (*types.LookupCatalog, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var (
		lookupTypes []*models.LookupType
		options     []*models.LookupOption
		links       []*models.LookupLink
	)
	if err := t.WithContext(ctx).Order("key ASC").Find(&lookupTypes).Error; err != nil {
		return nil, err
	}
	if err := t.WithContext(ctx).Order("lookup_type_id ASC, position ASC, code ASC").Find(&options).Error; err != nil {
		return nil, err
	}
	if err := t.WithContext(ctx).Order("id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	return lookupCatalogFromRows(lookupTypes, options, links), nil
}
