package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/aggregates"
	"github.com/yungbote/catalog-backend/internal/data/cache"
	repocatalog "github.com/yungbote/catalog-backend/internal/data/repos/catalog"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/manifest"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type ImportResult struct {
	LookupTypes  []string `json:"lookup_types"`
	ProductTypes []string `json:"product_types"`
	Published    []string `json:"published"`
}

// ImportService seeds an empty catalog from a manifest document. Every key in
// the document must be new; the whole import is one transaction.
type ImportService interface {
	Import(ctx context.Context, doc *manifest.Document) (*ImportResult, error)
}

type importService struct {
	deps         aggregates.BaseDeps
	log          *logger.Logger
	metrics      *observability.Metrics
	productTypes repocatalog.ProductTypeRepo
	lookups      repocatalog.LookupRepo
	snapshots    repocatalog.SnapshotRepo
	cache        cache.SnapshotCache
	now          func() time.Time
}

func NewImportService(
	db *gorm.DB,
	log *logger.Logger,
	metrics *observability.Metrics,
	productTypes repocatalog.ProductTypeRepo,
	lookups repocatalog.LookupRepo,
	snapshots repocatalog.SnapshotRepo,
	snapshotCache cache.SnapshotCache,
) ImportService {
	serviceLog := log.With("service", "ImportService")
	if snapshotCache == nil {
		snapshotCache = cache.Noop()
	}
	return &importService{
		deps: aggregates.BaseDeps{
			DB:    db,
			Log:   serviceLog,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		}.WithDefaults(),
		log:          serviceLog,
		metrics:      metrics,
		productTypes: productTypes,
		lookups:      lookups,
		snapshots:    snapshots,
		cache:        snapshotCache,
		now:          time.Now,
	}
}

func (s *importService) Import(ctx context.Context, doc *manifest.Document) (*ImportResult, error) {
	const op = "catalog.import"
	built, err := manifest.Build(doc, s.now())
	if err != nil {
		return nil, err
	}
	out := &ImportResult{}
	var snaps []*index.Snapshot
	err = aggregates.Execute(ctx, s.deps, op, func(dbc dbctx.Context) error {
		existing, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		for _, lt := range built.Lookups.Types {
			if existing.TypeByKey(lt.Key) != nil {
				return types.NewRuleError(types.CodeDuplicateKey, op, "lookup type already exists", "lookup_type", lt.Key)
			}
			if err := s.lookups.CreateType(dbc.Ctx, dbc.Tx, lt); err != nil {
				return err
			}
			out.LookupTypes = append(out.LookupTypes, lt.Key)
		}
		for _, l := range built.Lookups.Links {
			if err := s.lookups.CreateLink(dbc.Ctx, dbc.Tx, l); err != nil {
				return err
			}
		}
		for _, pt := range built.ProductTypes {
			prev, err := s.productTypes.GetLatestByKey(dbc.Ctx, dbc.Tx, pt.Key, existing)
			if err != nil {
				return err
			}
			if prev != nil {
				return types.NewRuleError(types.CodeDuplicateKey, op, "product type already exists", "product_type", pt.Key)
			}
			if err := s.productTypes.Create(dbc.Ctx, dbc.Tx, pt); err != nil {
				return err
			}
			out.ProductTypes = append(out.ProductTypes, pt.Key)
			if pt.Status != types.StatusPublished {
				continue
			}
			start := time.Now()
			snap, err := index.Build(pt)
			if err != nil {
				s.metrics.ObserveSnapshotBuild("failed", time.Since(start))
				return err
			}
			s.metrics.ObserveSnapshotBuild("success", time.Since(start))
			if err := s.snapshots.Upsert(dbc.Ctx, dbc.Tx, snap); err != nil {
				return err
			}
			snaps = append(snaps, snap)
			out.Published = append(out.Published, pt.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		if cerr := s.cache.Set(ctx, snap); cerr != nil {
			s.log.Warn("snapshot cache write failed", "product_type", snap.ProductTypeKey, "error", cerr)
		}
	}
	s.log.Info("manifest imported", "lookup_types", len(out.LookupTypes), "product_types", len(out.ProductTypes), "published", len(out.Published))
	return out, nil
}
