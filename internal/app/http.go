package app

import (
	"gorm.io/gorm"

	apihttp "github.com/yungbote/catalog-backend/internal/http"
	httpH "github.com/yungbote/catalog-backend/internal/http/handlers"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

const serviceName = "catalog"

type Handlers struct {
	Health      *httpH.HealthHandler
	ProductType *httpH.ProductTypeHandler
	Lookup      *httpH.LookupHandler
	Validation  *httpH.ValidationHandler
	Import      *httpH.ImportHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		ProductType: httpH.NewProductTypeHandler(services.Schema, log),
		Lookup:      httpH.NewLookupHandler(services.Lookup, log),
		Validation:  httpH.NewValidationHandler(services.Validation, log),
		Import:      httpH.NewImportHandler(services.Import, log),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *apihttp.Server {
	return apihttp.NewServer(apihttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        serviceName,
		TracingEnabled:     cfg.OtelEnabled,
		AllowedOrigins:     cfg.AllowedOrigins,
		ProductTypeHandler: handlers.ProductType,
		LookupHandler:      handlers.Lookup,
		ValidationHandler:  handlers.Validation,
		ImportHandler:      handlers.Import,
		HealthHandler:      handlers.Health,
	})
}
