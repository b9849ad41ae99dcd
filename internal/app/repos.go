package app

import (
	"gorm.io/gorm"

	repocatalog "github.com/yungbote/catalog-backend/internal/data/repos/catalog"
	"github.com/yungbote/catalog-backend/internal/platform/logger"
)

type Repos struct {
	ProductType repocatalog.ProductTypeRepo
	Lookup      repocatalog.LookupRepo
	Snapshot    repocatalog.SnapshotRepo
	Listing     repocatalog.ListingRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ProductType: repocatalog.NewProductTypeRepo(db, log),
		Lookup:      repocatalog.NewLookupRepo(db, log),
		Snapshot:    repocatalog.NewSnapshotRepo(db, log),
		Listing:     repocatalog.NewListingRepo(db, log),
	}
}
