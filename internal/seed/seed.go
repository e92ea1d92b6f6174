package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/carbontrail/carbontrail/internal/organization/domain"
	"gorm.io/gorm"
)

const defaultOrgName = "Main"

// EnsureDefaultOrg seeds the default organization for startup bootstrap.
func EnsureDefaultOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, err = ensureDefaultOrgTx(ctx, db, node.Generate())
	return err
}

// EnsureDefaultOrgWithID seeds the default organization under a fixed ID, for
// deployments that pin DEFAULT_ORG.
func EnsureDefaultOrgWithID(db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	_, err := ensureDefaultOrgTx(ctx, db, snowflake.ID(id))
	return err
}

func ensureDefaultOrgTx(ctx context.Context, db *gorm.DB, id snowflake.ID) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Order("created_at ASC").First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	org = organizationdomain.Organization{
		ID:   id,
		Name: defaultOrgName,
	}
	if err := db.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

// EnsureEmissionFactors seeds a baseline factor table so a fresh install can
// calculate immediately. Existing rows are never overwritten; operators tune
// factors after bootstrap.
func EnsureEmissionFactors(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	type factor struct {
		ActivityType string
		Value        float64
		Unit         string
		Scope        string
	}

	// DEFRA/BEIS-style conversion factors, kg CO2e per unit.
	factors := []factor{
		{"electricity_grid", 0.233, "kwh", "scope_2"},
		{"natural_gas", 0.18385, "kwh", "scope_1"},
		{"diesel", 2.66, "l", "scope_1"},
		{"petrol", 2.31, "l", "scope_1"},
		{"heating_oil", 2.54, "l", "scope_1"},
		{"lpg", 1.56, "l", "scope_1"},
		{"refrigerant_r410a", 2088, "kg", "scope_1"},
		{"district_heating", 0.171, "kwh", "scope_2"},
	}

	ctx := context.Background()
	for _, f := range factors {
		err := db.WithContext(ctx).
			Exec(`
				INSERT INTO emission_factors (id, activity_type, value, unit, scope)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (activity_type) DO NOTHING
			`,
				node.Generate(),
				f.ActivityType,
				f.Value,
				f.Unit,
				f.Scope,
			).Error
		if err != nil {
			return err
		}
	}

	return nil
}
