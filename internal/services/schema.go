package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/aggregates"
	"github.com/yungbote/catalog-backend/internal/data/cache"
	"github.com/yungbote/catalog-backend/internal/data/models"
	repocatalog "github.com/yungbote/catalog-backend/internal/data/repos/catalog"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/modules/catalog/index"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

const productTypeTable = "product_type"

type CreateProductTypeInput struct {
	Key       string
	Name      string
	ParentKey string
}

// SchemaService owns product type authoring. Every mutation loads the
// aggregate, applies one domain operation and writes it back under the
// lock_version guard; a nil expected lock skips the caller-side check.
type SchemaService interface {
	CreateProductType(ctx context.Context, in CreateProductTypeInput) (*types.ProductType, error)
	GetProductType(ctx context.Context, id uuid.UUID) (*types.ProductType, error)
	GetLatestProductType(ctx context.Context, key string) (*types.ProductType, error)
	ListProductTypes(ctx context.Context) ([]*models.ProductType, error)
	ListVersions(ctx context.Context, key string) ([]*models.ProductType, error)

	AddAttribute(ctx context.Context, id uuid.UUID, expected *int, spec types.AttributeSpec) (*types.ProductType, error)
	RemoveAttribute(ctx context.Context, id uuid.UUID, expected *int, key string) (*types.ProductType, error)
	AddEnumOption(ctx context.Context, id uuid.UUID, expected *int, attrKey string, spec types.OptionSpec) (*types.ProductType, error)
	RemoveEnumOption(ctx context.Context, id uuid.UUID, expected *int, attrKey, code string) (*types.ProductType, error)
	SetDependsOn(ctx context.Context, id uuid.UUID, expected *int, childKey, parentKey string, scopes map[string]string) (*types.ProductType, error)
	ClearDependsOn(ctx context.Context, id uuid.UUID, expected *int, childKey string) (*types.ProductType, error)
	SetLookupAllowed(ctx context.Context, id uuid.UUID, expected *int, lookupTypeKey string, codes []string) (*types.ProductType, error)

	// Publish checks and freezes the schema, then compiles and stores its
	// index snapshot in the same transaction.
	Publish(ctx context.Context, id uuid.UUID, expected *int) (*types.ProductType, *index.Snapshot, error)
	// Clone opens the next Draft version of the latest published version.
	Clone(ctx context.Context, id uuid.UUID) (*types.ProductType, error)

	// GetSnapshot reads through the cache, then the database, and recompiles
	// a published schema whose snapshot row is missing.
	GetSnapshot(ctx context.Context, id uuid.UUID) (*index.Snapshot, error)
	// LoadIndex hydrates the snapshot of a published product type.
	LoadIndex(ctx context.Context, id uuid.UUID) (*index.Index, error)
}

type schemaService struct {
	deps         aggregates.BaseDeps
	log          *logger.Logger
	metrics      *observability.Metrics
	productTypes repocatalog.ProductTypeRepo
	lookups      repocatalog.LookupRepo
	snapshots    repocatalog.SnapshotRepo
	cache        cache.SnapshotCache
	now          func() time.Time
}

func NewSchemaService(
	db *gorm.DB,
	log *logger.Logger,
	metrics *observability.Metrics,
	productTypes repocatalog.ProductTypeRepo,
	lookups repocatalog.LookupRepo,
	snapshots repocatalog.SnapshotRepo,
	snapshotCache cache.SnapshotCache,
) SchemaService {
	serviceLog := log.With("service", "SchemaService")
	if snapshotCache == nil {
		snapshotCache = cache.Noop()
	}
	return &schemaService{
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

func (s *schemaService) CreateProductType(ctx context.Context, in CreateProductTypeInput) (*types.ProductType, error) {
	const op = "product_type.create"
	var out *types.ProductType
	err := aggregates.Execute(ctx, s.deps, op, func(dbc dbctx.Context) error {
		catalog, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		existing, err := s.productTypes.GetLatestByKey(dbc.Ctx, dbc.Tx, in.Key, catalog)
		if err != nil {
			return err
		}
		if existing != nil {
			return types.NewRuleError(types.CodeDuplicateKey, op, "product type key already exists; clone it to start a new version",
				"product_type", in.Key)
		}
		var parent *types.ProductType
		if in.ParentKey != "" {
			parent, err = s.productTypes.GetLatestByKey(dbc.Ctx, dbc.Tx, in.ParentKey, catalog)
			if err != nil {
				return err
			}
			if parent == nil {
				return aggregates.NotFoundError(op, "parent product type not found")
			}
			if parent.Status != types.StatusPublished {
				return types.NewRuleError(types.CodeWrongState, op, "parent product type must be published",
					"product_type", in.Key, "parent", parent.Key)
			}
		}
		pt, err := types.NewProductType(in.Key, in.Name, parent, catalog)
		if err != nil {
			return err
		}
		if err := s.productTypes.Create(dbc.Ctx, dbc.Tx, pt); err != nil {
			return err
		}
		out = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product type created", "product_type", out.Key, "id", out.ID)
	return out, nil
}

func (s *schemaService) GetProductType(ctx context.Context, id uuid.UUID) (*types.ProductType, error) {
	const op = "product_type.get"
	catalog, err := s.lookups.LoadCatalog(ctx, nil)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	pt, err := s.productTypes.GetByID(ctx, nil, id, catalog)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if pt == nil {
		return nil, aggregates.NotFoundError(op, "product type not found")
	}
	return pt, nil
}

func (s *schemaService) GetLatestProductType(ctx context.Context, key string) (*types.ProductType, error) {
	const op = "product_type.get_latest"
	catalog, err := s.lookups.LoadCatalog(ctx, nil)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	pt, err := s.productTypes.GetLatestByKey(ctx, nil, key, catalog)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if pt == nil {
		return nil, aggregates.NotFoundError(op, "product type not found")
	}
	return pt, nil
}

func (s *schemaService) ListProductTypes(ctx context.Context) ([]*models.ProductType, error) {
	rows, err := s.productTypes.ListLatest(ctx, nil)
	if err != nil {
		return nil, aggregates.MapError("product_type.list", err)
	}
	return rows, nil
}

func (s *schemaService) ListVersions(ctx context.Context, key string) ([]*models.ProductType, error) {
	rows, err := s.productTypes.ListVersions(ctx, nil, key)
	if err != nil {
		return nil, aggregates.MapError("product_type.versions", err)
	}
	return rows, nil
}

// mutate runs fn against the stored aggregate and persists the result. The
// header write is a compare-and-set on lock_version; a stale lock is a
// conflict.
func (s *schemaService) mutate(ctx context.Context, op string, id uuid.UUID, expected *int, fn func(dbc dbctx.Context, pt *types.ProductType) error) (*types.ProductType, error) {
	var out *types.ProductType
	err := aggregates.Execute(ctx, s.deps, op, func(dbc dbctx.Context) error {
		catalog, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		pt, err := s.productTypes.GetByID(dbc.Ctx, dbc.Tx, id, catalog)
		if err != nil {
			return err
		}
		if pt == nil {
			return aggregates.NotFoundError(op, "product type not found")
		}
		lock := pt.LockVersion
		if expected != nil {
			lock = *expected
		}
		if err := fn(dbc, pt); err != nil {
			return err
		}
		ok, err := s.deps.CASGuard.UpdateByVersion(dbc, productTypeTable, pt.ID, lock, map[string]any{
			"name":         pt.Name,
			"status":       string(pt.Status),
			"published_at": pt.PublishedAt,
			"updated_at":   s.now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := aggregates.RequireCASSuccess(ok, "product type was modified concurrently"); err != nil {
			return err
		}
		pt.LockVersion = lock + 1
		if err := s.productTypes.SaveSchema(dbc.Ctx, dbc.Tx, pt); err != nil {
			return err
		}
		out = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *schemaService) AddAttribute(ctx context.Context, id uuid.UUID, expected *int, spec types.AttributeSpec) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.add_attribute", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		_, err := pt.AddAttribute(spec)
		return err
	})
}

func (s *schemaService) RemoveAttribute(ctx context.Context, id uuid.UUID, expected *int, key string) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.remove_attribute", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		return pt.RemoveAttribute(key)
	})
}

func (s *schemaService) AddEnumOption(ctx context.Context, id uuid.UUID, expected *int, attrKey string, spec types.OptionSpec) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.add_option", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		_, err := pt.AddEnumOption(attrKey, spec)
		return err
	})
}

func (s *schemaService) RemoveEnumOption(ctx context.Context, id uuid.UUID, expected *int, attrKey, code string) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.remove_option", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		return pt.RemoveEnumOption(attrKey, code)
	})
}

func (s *schemaService) SetDependsOn(ctx context.Context, id uuid.UUID, expected *int, childKey, parentKey string, scopes map[string]string) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.set_depends_on", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		return pt.SetDependsOn(childKey, parentKey, scopes)
	})
}

func (s *schemaService) ClearDependsOn(ctx context.Context, id uuid.UUID, expected *int, childKey string) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.clear_depends_on", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		return pt.ClearDependsOn(childKey)
	})
}

func (s *schemaService) SetLookupAllowed(ctx context.Context, id uuid.UUID, expected *int, lookupTypeKey string, codes []string) (*types.ProductType, error) {
	return s.mutate(ctx, "product_type.set_lookup_allowed", id, expected, func(_ dbctx.Context, pt *types.ProductType) error {
		return pt.SetLookupAllowed(lookupTypeKey, codes)
	})
}

func (s *schemaService) Publish(ctx context.Context, id uuid.UUID, expected *int) (*types.ProductType, *index.Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "SchemaService.Publish", attribute.String("product_type.id", id.String()))
	var snap *index.Snapshot
	pt, err := s.mutate(ctx, "product_type.publish", id, expected, func(dbc dbctx.Context, pt *types.ProductType) error {
		if err := pt.Publish(s.now()); err != nil {
			return err
		}
		start := time.Now()
		built, err := index.Build(pt)
		if err != nil {
			s.metrics.ObserveSnapshotBuild("failed", time.Since(start))
			return err
		}
		s.metrics.ObserveSnapshotBuild("success", time.Since(start))
		if err := s.snapshots.Upsert(dbc.Ctx, dbc.Tx, built); err != nil {
			return err
		}
		snap = built
		return nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, nil, err
	}
	if cerr := s.cache.Set(ctx, snap); cerr != nil {
		s.log.Warn("snapshot cache write failed", "product_type", pt.Key, "version", pt.Version, "error", cerr)
	}
	s.log.Info("product type published", "product_type", pt.Key, "version", pt.Version)
	return pt, snap, nil
}

func (s *schemaService) Clone(ctx context.Context, id uuid.UUID) (*types.ProductType, error) {
	const op = "product_type.clone"
	var out *types.ProductType
	err := aggregates.Execute(ctx, s.deps, op, func(dbc dbctx.Context) error {
		catalog, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		pt, err := s.productTypes.GetByID(dbc.Ctx, dbc.Tx, id, catalog)
		if err != nil {
			return err
		}
		if pt == nil {
			return aggregates.NotFoundError(op, "product type not found")
		}
		latest, err := s.productTypes.GetLatestByKey(dbc.Ctx, dbc.Tx, pt.Key, catalog)
		if err != nil {
			return err
		}
		if latest != nil && latest.Version != pt.Version {
			return types.NewRuleError(types.CodeWrongState, op, "only the latest version can be cloned",
				"product_type", pt.Key, "version", strconv.Itoa(pt.Version), "latest", strconv.Itoa(latest.Version))
		}
		next, err := pt.CloneAsNextVersion()
		if err != nil {
			return err
		}
		if err := s.productTypes.Create(dbc.Ctx, dbc.Tx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product type cloned", "product_type", out.Key, "version", out.Version)
	return out, nil
}

func (s *schemaService) GetSnapshot(ctx context.Context, id uuid.UUID) (*index.Snapshot, error) {
	const op = "product_type.snapshot"
	header, err := s.productTypes.GetHeader(ctx, nil, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if header == nil {
		return nil, aggregates.NotFoundError(op, "product type not found")
	}
	if header.Status != string(types.StatusPublished) {
		return nil, types.NewRuleError(types.CodeWrongState, op, "only published product types have a snapshot",
			"product_type", header.Key, "status", header.Status)
	}

	if snap, err := s.cache.Get(ctx, id, header.Version); err != nil {
		s.log.Warn("snapshot cache read failed", "product_type", header.Key, "error", err)
	} else if snap != nil {
		return snap, nil
	}

	snap, err := s.snapshots.Get(ctx, nil, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if snap == nil {
		snap, err = s.rebuild(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if cerr := s.cache.Set(ctx, snap); cerr != nil {
		s.log.Warn("snapshot cache write failed", "product_type", header.Key, "error", cerr)
	}
	return snap, nil
}

// rebuild recompiles and stores the snapshot of a published schema whose row
// is missing.
func (s *schemaService) rebuild(ctx context.Context, id uuid.UUID) (*index.Snapshot, error) {
	const op = "product_type.snapshot_rebuild"
	var out *index.Snapshot
	err := aggregates.Execute(ctx, s.deps, op, func(dbc dbctx.Context) error {
		catalog, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		pt, err := s.productTypes.GetByID(dbc.Ctx, dbc.Tx, id, catalog)
		if err != nil {
			return err
		}
		if pt == nil {
			return aggregates.NotFoundError(op, "product type not found")
		}
		start := time.Now()
		snap, err := index.Build(pt)
		if err != nil {
			s.metrics.ObserveSnapshotBuild("failed", time.Since(start))
			return err
		}
		s.metrics.ObserveSnapshotBuild("rebuilt", time.Since(start))
		if err := s.snapshots.Upsert(dbc.Ctx, dbc.Tx, snap); err != nil {
			return err
		}
		out = snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Warn("snapshot missing, rebuilt from schema", "product_type_id", id, "version", out.Version)
	return out, nil
}

func (s *schemaService) LoadIndex(ctx context.Context, id uuid.UUID) (*index.Index, error) {
	ctx, span := observability.StartSpan(ctx, "SchemaService.LoadIndex", attribute.String("product_type.id", id.String()))
	idx, err := s.loadIndex(ctx, id)
	observability.EndSpan(span, err)
	return idx, err
}

func (s *schemaService) loadIndex(ctx context.Context, id uuid.UUID) (*index.Index, error) {
	snap, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	pt, err := s.GetProductType(ctx, id)
	if err != nil {
		return nil, err
	}
	idx, err := index.Hydrate(snap, pt)
	if err != nil {
		s.log.Error("snapshot hydration failed", "product_type", pt.Key, "version", pt.Version, "error", err)
		return nil, err
	}
	for _, st := range idx.Stale() {
		s.metrics.IncStaleCode(st.Attribute)
		s.log.Warn("snapshot references a removed option", "product_type", pt.Key, "attribute", st.Attribute, "code", st.Code)
	}
	return idx, nil
}
