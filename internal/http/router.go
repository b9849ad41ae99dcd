package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/catalog-backend/internal/http/handlers"
	httpMW "github.com/yungbote/catalog-backend/internal/http/middleware"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	AllowedOrigins []string

	ProductTypeHandler *httpH.ProductTypeHandler
	LookupHandler      *httpH.LookupHandler
	ValidationHandler  *httpH.ValidationHandler
	ImportHandler      *httpH.ImportHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	httpH.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Product types
		if pt := cfg.ProductTypeHandler; pt != nil {
			api.POST("/product-types", pt.Create)
			api.GET("/product-types", pt.List)
			api.GET("/product-types/:id", pt.Get)
			api.GET("/product-types/:id/versions", pt.Versions)
			api.GET("/product-types/:id/snapshot", pt.Snapshot)
			api.POST("/product-types/:id/publish", pt.Publish)
			api.POST("/product-types/:id/clone", pt.Clone)

			api.POST("/product-types/:id/attributes", pt.AddAttribute)
			api.DELETE("/product-types/:id/attributes/:key", pt.RemoveAttribute)
			api.POST("/product-types/:id/attributes/:key/options", pt.AddOption)
			api.DELETE("/product-types/:id/attributes/:key/options/:code", pt.RemoveOption)
			api.PUT("/product-types/:id/attributes/:key/depends-on", pt.SetDependsOn)
			api.DELETE("/product-types/:id/attributes/:key/depends-on", pt.ClearDependsOn)
			api.PUT("/product-types/:id/lookup-allowed/:lookup", pt.SetLookupAllowed)
		}

		// Validation
		if v := cfg.ValidationHandler; v != nil {
			api.POST("/product-types/:id/combinations", v.Combinations)
			api.POST("/product-types/:id/combinations/check", v.CheckCombination)
			api.POST("/product-types/:id/reachability", v.CheckReachability)

			api.GET("/listings", v.ListListings)
			api.POST("/listings", v.SaveListing)
			api.POST("/listings/validate", v.ValidateListing)
			api.GET("/listings/:id", v.GetListing)
		}

		// Lookups
		if l := cfg.LookupHandler; l != nil {
			api.GET("/lookups", l.Catalog)
			api.POST("/lookups", l.CreateType)
			api.POST("/lookups/:key/options", l.AddOption)
			api.POST("/lookup-links", l.AddLink)
		}

		// Import
		if cfg.ImportHandler != nil {
			api.POST("/import", cfg.ImportHandler.Import)
		}
	}

	return r
}
