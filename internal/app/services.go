package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/cache"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
	"github.com/yungbote/catalog-backend/internal/services"
)

type Services struct {
	Schema     services.SchemaService
	Lookup     services.LookupService
	Import     services.ImportService
	Validation services.ValidationService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")
	var snapshotCache cache.SnapshotCache = cache.Noop()
	if clients.Redis != nil {
		snapshotCache = cache.NewRedisSnapshotCache(clients.Redis, cfg.SnapshotCacheTTL, log, metrics)
	}
	schema := services.NewSchemaService(db, log, metrics, repos.ProductType, repos.Lookup, repos.Snapshot, snapshotCache)
	return Services{
		Schema:     schema,
		Lookup:     services.NewLookupService(db, log, metrics, repos.Lookup),
		Import:     services.NewImportService(db, log, metrics, repos.ProductType, repos.Lookup, repos.Snapshot, snapshotCache),
		Validation: services.NewValidationService(db, log, metrics, schema, repos.Listing, cfg.ValidationConcurrency),
	}
}
