package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/models"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/axis"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

// Listing is a seller's offer for one product type version together with its
// variant axes and concrete variants.
type Listing struct {
	ID            uuid.UUID                 `json:"id"`
	ProductTypeID uuid.UUID                 `json:"product_type_id"`
	SellerID      string                    `json:"seller_id,omitempty"`
	Name          string                    `json:"name"`
	Inputs        index.Inputs              `json:"inputs"`
	Axes          *axis.VariantAxisSnapshot `json:"axes"`
	Variants      []axis.Variant            `json:"variants"`
	CreatedAt     time.Time                 `json:"created_at"`
}

type ListingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, l *Listing) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Listing, error)
	// ListBySeller returns listing headers, newest first, without inputs or
	// variants.
	ListBySeller(ctx context.Context, tx *gorm.DB, sellerID string) ([]*Listing, error)
}

type listingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewListingRepo(db *gorm.DB, baseLog *logger.Logger) ListingRepo {
	return &listingRepo{db: db, log: baseLog.With("repo", "ListingRepo")}
}

func (r *listingRepo) Create(ctx context.Context, tx *gorm.DB, l *Listing) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if l == nil {
		return nil
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	inputs, err := json.Marshal(l.Inputs)
	if err != nil {
		return err
	}
	axes, err := json.Marshal(l.Axes)
	if err != nil {
		return err
	}
	row := &models.Listing{
		ID:            l.ID,
		ProductTypeID: l.ProductTypeID,
		SellerID:      l.SellerID,
		Name:          l.Name,
		Inputs:        datatypes.JSON(inputs),
		Axes:          datatypes.JSON(axes),
	}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	l.CreatedAt = row.CreatedAt
	if len(l.Variants) == 0 {
		return nil
	}
	variants := make([]*models.ListingVariant, 0, len(l.Variants))
	for i := range l.Variants {
		v := &l.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		values, err := json.Marshal(v.Values)
		if err != nil {
			return err
		}
		variants = append(variants, &models.ListingVariant{ID: v.ID, ListingID: l.ID, SKU: v.SKU, Values: datatypes.JSON(values)})
	}
	return t.WithContext(ctx).Create(&variants).Error
}

// GetByID returns nil, nil when the listing does not exist.
func (r *listingRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Listing, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row models.Listing
	if err := t.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var variants []*models.ListingVariant
	if err := t.WithContext(ctx).Where("listing_id = ?", id).Order("sku ASC").Find(&variants).Error; err != nil {
		return nil, err
	}

	const op = "ListingRepo.GetByID"
	out := &Listing{ID: row.ID, ProductTypeID: row.ProductTypeID, SellerID: row.SellerID, Name: row.Name, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal(row.Inputs, &out.Inputs); err != nil {
		return nil, types.NewStateError(op, "stored listing inputs are malformed", "listing_id", id.String())
	}
	if err := json.Unmarshal(row.Axes, &out.Axes); err != nil {
		return nil, types.NewStateError(op, "stored listing axes are malformed", "listing_id", id.String())
	}
	for _, v := range variants {
		item := axis.Variant{ID: v.ID, SKU: v.SKU}
		if err := json.Unmarshal(v.Values, &item.Values); err != nil {
			return nil, types.NewStateError(op, "stored variant values are malformed", "sku", v.SKU)
		}
		out.Variants = append(out.Variants, item)
	}
	return out, nil
}

func (r *listingRepo) ListBySeller(ctx context.Context, tx *gorm.DB, sellerID string) ([]*Listing, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	out := []*Listing{}
	if sellerID == "" {
		return out, nil
	}
	var rows []*models.Listing
	if err := t.WithContext(ctx).
		Select("id", "product_type_id", "seller_id", "name", "created_at").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out = append(out, &Listing{
			ID:            row.ID,
			ProductTypeID: row.ProductTypeID,
			SellerID:      row.SellerID,
			Name:          row.Name,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out, nil
}
