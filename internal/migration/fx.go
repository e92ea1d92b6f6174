package migration

import (
	allocationdomain "github.com/carbontrail/carbontrail/internal/allocation/domain"
	"github.com/carbontrail/carbontrail/internal/config"
	emissionfactordomain "github.com/carbontrail/carbontrail/internal/emissionfactor/domain"
	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
	fleetdomain "github.com/carbontrail/carbontrail/internal/fleet/domain"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	organizationdomain "github.com/carbontrail/carbontrail/internal/organization/domain"
	overheaddomain "github.com/carbontrail/carbontrail/internal/overhead/domain"
	productdomain "github.com/carbontrail/carbontrail/internal/product/domain"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
	"github.com/carbontrail/carbontrail/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-Postgres installs (sqlite for local dev, mysql) use gorm's
			// schema builder instead of the SQL migration set.
			if err := autoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.DefaultOrgID != 0 {
			if err := seed.EnsureDefaultOrgWithID(conn, cfg.DefaultOrgID); err != nil {
				return err
			}
		} else {
			if err := seed.EnsureDefaultOrg(conn); err != nil {
				return err
			}
		}
		return seed.EnsureEmissionFactors(conn)
	}),
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&organizationdomain.Organization{},
		&facilitydomain.Facility{},
		&facilitydomain.ActivityEntry{},
		&emissionfactordomain.EmissionFactor{},
		&fleetdomain.FleetActivity{},
		&productdomain.Product{},
		&productdomain.ProductionLog{},
		&footprintdomain.ProductFootprint{},
		&allocationdomain.ProductionMixAllocation{},
		&overheaddomain.CorporateOverheadEntry{},
		&reportdomain.CorporateReport{},
	)
}
