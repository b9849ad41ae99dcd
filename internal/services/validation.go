package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/aggregates"
	repocatalog "github.com/yungbote/catalog-backend/internal/data/repos/catalog"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/axis"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/listing"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

// ListingInput is a listing as clients submit it: textual inputs and
// variant values keyed by attribute key.
type ListingInput struct {
	ProductTypeID uuid.UUID
	SellerID      string
	Name          string
	Inputs        map[string]manifest.InputDoc
	Variants      []manifest.VariantDoc
	RequireAll    bool
	Policy        index.AllowPolicy
}

type ValidationService interface {
	ValidateCombination(ctx context.Context, productTypeID uuid.UUID, inputs map[string]manifest.InputDoc, selections map[string]string, policy index.AllowPolicy) (bool, error)
	CheckReachability(ctx context.Context, productTypeID uuid.UUID, inputs map[string]manifest.InputDoc, childKey, childCode string, policy index.AllowPolicy) (bool, error)
	ValidCombinations(ctx context.Context, productTypeID uuid.UUID, inputs map[string]manifest.InputDoc, policy index.AllowPolicy) ([]index.Combination, error)
	ValidateListing(ctx context.Context, in ListingInput) (*listing.Report, error)
	// SaveListing validates the listing and stores it only when every variant
	// passes; the report is returned either way.
	SaveListing(ctx context.Context, in ListingInput) (*repocatalog.Listing, *listing.Report, error)
	GetListing(ctx context.Context, id uuid.UUID) (*repocatalog.Listing, error)
	ListListings(ctx context.Context, sellerID string) ([]*repocatalog.Listing, error)
}

type validationService struct {
	deps        aggregates.BaseDeps
	log         *logger.Logger
	metrics     *observability.Metrics
	schema      SchemaService
	listings    repocatalog.ListingRepo
	concurrency int
}

func NewValidationService(
	db *gorm.DB,
	log *logger.Logger,
	metrics *observability.Metrics,
	schema SchemaService,
	listings repocatalog.ListingRepo,
	concurrency int,
) ValidationService {
	serviceLog := log.With("service", "ValidationService")
	if concurrency < 1 {
		concurrency = 1
	}
	return &validationService{
		deps: aggregates.BaseDeps{
			DB:    db,
			Log:   serviceLog,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		}.WithDefaults(),
		log:         serviceLog,
		metrics:     metrics,
		schema:      schema,
		listings:    listings,
		concurrency: concurrency,
	}
}

func (s *validationService) session(ctx context.Context, productTypeID uuid.UUID, raw map[string]manifest.InputDoc) (*index.Session, error) {
	idx, err := s.schema.LoadIndex(ctx, productTypeID)
	if err != nil {
		return nil, err
	}
	inputs, err := manifest.Inputs(idx.ProductType(), raw)
	if err != nil {
		return nil, err
	}
	return idx.BeginValidation(inputs)
}

func (s *validationService) ValidateCombination(ctx context.Context, productTypeID uuid.UUID, inputs map[string]manifest.InputDoc, selections map[string]string, policy index.AllowPolicy) (bool, error) {
	sess, err := s.session(ctx, productTypeID, inputs)
	if err != nil {
		return false, err
	}
	return sess.IsVariantComboValid(selections, policy)
}

func (s *validationService) CheckReachability(ctx context.Context, productTypeID uuid.UUID, inputs map[string]manifest.InputDoc, childKey, childCode string, policy index.AllowPolicy) (bool, error) {
	sess, err := s.session(ctx, productTypeID, inputs)
	if err != nil {
		return false, err
	}
	return sess.IsChildCodeReachableFromParents(childKey, childCode, policy)
}

func (s *validationService) ValidCombinations(ctx context.Context, productTypeID uuid.UUID, inputs map[string]manifest.InputDoc, policy index.AllowPolicy) ([]index.Combination, error) {
	sess, err := s.session(ctx, productTypeID, inputs)
	if err != nil {
		return nil, err
	}
	return sess.ValidCombinations(policy)
}

func (s *validationService) ValidateListing(ctx context.Context, in ListingInput) (*listing.Report, error) {
	report, _, _, err := s.validate(ctx, in)
	return report, err
}

func (s *validationService) validate(ctx context.Context, in ListingInput) (*listing.Report, index.Inputs, []axis.Variant, error) {
	ctx, span := observability.StartSpan(ctx, "ValidationService.ValidateListing",
		attribute.String("product_type.id", in.ProductTypeID.String()),
		attribute.Int("listing.variants", len(in.Variants)),
	)
	start := time.Now()
	report, inputs, variants, err := s.runValidation(ctx, in)
	observability.EndSpan(span, err)

	switch {
	case err != nil && types.IsRule(err):
		s.metrics.ObserveValidation("rejected", -1, time.Since(start))
	case err != nil:
		s.metrics.ObserveValidation("error", -1, time.Since(start))
		if types.IsInvalidState(err) {
			s.log.Error("listing validation hit invalid state", "product_type_id", in.ProductTypeID, "error", err)
		}
	case report.Valid():
		s.metrics.ObserveValidation("valid", len(report.Combinations), time.Since(start))
	default:
		s.metrics.ObserveValidation("invalid", len(report.Combinations), time.Since(start))
	}
	return report, inputs, variants, err
}

func (s *validationService) runValidation(ctx context.Context, in ListingInput) (*listing.Report, index.Inputs, []axis.Variant, error) {
	idx, err := s.schema.LoadIndex(ctx, in.ProductTypeID)
	if err != nil {
		return nil, nil, nil, err
	}
	pt := idx.ProductType()
	inputs, err := manifest.Inputs(pt, in.Inputs)
	if err != nil {
		return nil, nil, nil, err
	}
	variants := make([]axis.Variant, 0, len(in.Variants))
	for _, vd := range in.Variants {
		v, err := manifest.Variant(pt, vd)
		if err != nil {
			return nil, nil, nil, err
		}
		variants = append(variants, v)
	}
	report, err := listing.Validate(ctx, idx, inputs, variants, listing.Options{
		Policy:      in.Policy,
		Concurrency: s.concurrency,
		RequireAll:  in.RequireAll,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return report, inputs, variants, nil
}

func (s *validationService) SaveListing(ctx context.Context, in ListingInput) (*repocatalog.Listing, *listing.Report, error) {
	in.RequireAll = true
	report, inputs, variants, err := s.validate(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if !report.Valid() {
		return nil, report, nil
	}
	row := &repocatalog.Listing{
		ProductTypeID: in.ProductTypeID,
		SellerID:      in.SellerID,
		Name:          in.Name,
		Inputs:        inputs,
		Axes:          report.Axes,
		Variants:      variants,
	}
	err = aggregates.Execute(ctx, s.deps, "listing.create", func(dbc dbctx.Context) error {
		return s.listings.Create(dbc.Ctx, dbc.Tx, row)
	})
	if err != nil {
		return nil, report, err
	}
	s.log.Info("listing saved", "listing_id", row.ID, "seller_id", in.SellerID, "variants", len(variants))
	return row, report, nil
}

func (s *validationService) GetListing(ctx context.Context, id uuid.UUID) (*repocatalog.Listing, error) {
	const op = "listing.get"
	l, err := s.listings.GetByID(ctx, nil, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if l == nil {
		return nil, aggregates.NotFoundError(op, "listing not found")
	}
	return l, nil
}

func (s *validationService) ListListings(ctx context.Context, sellerID string) ([]*repocatalog.Listing, error) {
	const op = "listing.list"
	out, err := s.listings.ListBySeller(ctx, nil, sellerID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return out, nil
}
