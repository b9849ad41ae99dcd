package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/catalog-backend/internal/data/aggregates"
	repocatalog "github.com/yungbote/catalog-backend/internal/data/repos/catalog"
	types "github.com/yungbote/catalog-backend/internal/domain/catalog"
	"github.com/yungbote/catalog-backend/internal/observability"
	"github.com/yungbote/catalog-backend/internal/platform/dbctx"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

// LookupService maintains the shared lookup catalog. Lookup values are only
// ever added; published snapshots keep the options they were compiled with.
type LookupService interface {
	Catalog(ctx context.Context) (*types.LookupCatalog, error)
	CreateType(ctx context.Context, key, name string, open bool) (*types.LookupType, error)
	AddOption(ctx context.Context, typeKey, code, label string, position int) (*types.LookupOption, error)
	AddLink(ctx context.Context, parentTypeKey, parentCode, childTypeKey, childCode string) (*types.LookupLink, error)
}

type lookupService struct {
	deps    aggregates.BaseDeps
	log     *logger.Logger
	lookups repocatalog.LookupRepo
}

func NewLookupService(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics, lookups repocatalog.LookupRepo) LookupService {
	serviceLog := log.With("service", "LookupService")
	return &lookupService{
		deps: aggregates.BaseDeps{
			DB:    db,
			Log:   serviceLog,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		}.WithDefaults(),
		log:     serviceLog,
		lookups: lookups,
	}
}

func (s *lookupService) Catalog(ctx context.Context) (*types.LookupCatalog, error) {
	c, err := s.lookups.LoadCatalog(ctx, nil)
	if err != nil {
		return nil, aggregates.MapError("lookup.catalog", err)
	}
	return c, nil
}

func (s *lookupService) CreateType(ctx context.Context, key, name string, open bool) (*types.LookupType, error) {
	var out *types.LookupType
	err := aggregates.Execute(ctx, s.deps, "lookup.create_type", func(dbc dbctx.Context) error {
		c, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		lt, err := c.AddType(key, name, open)
		if err != nil {
			return err
		}
		if err := s.lookups.CreateType(dbc.Ctx, dbc.Tx, lt); err != nil {
			return err
		}
		out = lt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("lookup type created", "lookup_type", out.Key, "open", out.OpenConstraint)
	return out, nil
}

func (s *lookupService) AddOption(ctx context.Context, typeKey, code, label string, position int) (*types.LookupOption, error) {
	var out *types.LookupOption
	err := aggregates.Execute(ctx, s.deps, "lookup.add_option", func(dbc dbctx.Context) error {
		c, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		o, err := c.AddOption(typeKey, code, label, position)
		if err != nil {
			return err
		}
		if err := s.lookups.CreateOption(dbc.Ctx, dbc.Tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *lookupService) AddLink(ctx context.Context, parentTypeKey, parentCode, childTypeKey, childCode string) (*types.LookupLink, error) {
	var out *types.LookupLink
	err := aggregates.Execute(ctx, s.deps, "lookup.add_link", func(dbc dbctx.Context) error {
		c, err := s.lookups.LoadCatalog(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		l, err := c.AddLink(parentTypeKey, parentCode, childTypeKey, childCode)
		if err != nil {
			return err
		}
		if err := s.lookups.CreateLink(dbc.Ctx, dbc.Tx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
