package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/carbontrail/carbontrail/internal/allocation/domain"
	"github.com/carbontrail/carbontrail/internal/clock"
	emissionfactordomain "github.com/carbontrail/carbontrail/internal/emissionfactor/domain"
	factorservice "github.com/carbontrail/carbontrail/internal/emissionfactor/service"
	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
	fleetdomain "github.com/carbontrail/carbontrail/internal/fleet/domain"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	footprintservice "github.com/carbontrail/carbontrail/internal/footprint/service"
	organizationdomain "github.com/carbontrail/carbontrail/internal/organization/domain"
	overheaddomain "github.com/carbontrail/carbontrail/internal/overhead/domain"
	productdomain "github.com/carbontrail/carbontrail/internal/product/domain"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type reportFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   reportdomain.Service
	orgID snowflake.ID
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()

	// Each test gets its own named in-memory database so the concurrent
	// snapshot reads share state without leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
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
	assert.NoError(t, err)

	node, _ := snowflake.NewNode(1)
	log := zap.NewNop()

	factors := factorservice.NewService(factorservice.ServiceParam{DB: db, Log: log})
	footprints := footprintservice.NewService(footprintservice.ServiceParam{DB: db, Log: log, GenID: node})

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		Clock:      clock.NewSystemClock(),
		GenID:      node,
		Factors:    factors,
		Footprints: footprints,
	})

	orgID := node.Generate()
	db.Create(&organizationdomain.Organization{ID: orgID, Name: "Acme Manufacturing"})

	return &reportFixture{db: db, node: node, svc: svc, orgID: orgID}
}

func (f *reportFixture) seedFactor(activityType string, value float64, unit string, scope facilitydomain.ScopeTag) {
	f.db.Create(&emissionfactordomain.EmissionFactor{
		ID:           f.node.Generate(),
		ActivityType: activityType,
		Value:        value,
		Unit:         unit,
		Scope:        scope,
	})
}

func (f *reportFixture) seedActivity(activityType string, quantity float64, unit string, scope facilitydomain.ScopeTag, year int) {
	f.db.Create(&facilitydomain.ActivityEntry{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		FacilityID:   f.node.Generate(),
		ActivityType: activityType,
		Quantity:     quantity,
		Unit:         unit,
		PeriodStart:  time.Date(year, 4, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(year, 5, 1, 0, 0, 0, 0, time.UTC),
		Scope:        scope,
	})
}

func (f *reportFixture) seedFleet(tonnes float64, class fleetdomain.ScopeClass, year int) {
	f.db.Create(&fleetdomain.FleetActivity{
		ID:             f.node.Generate(),
		OrgID:          f.orgID,
		EmissionsTCO2e: tonnes,
		ScopeClass:     class,
		ActivityDate:   time.Date(year, 6, 15, 0, 0, 0, 0, time.UTC),
	})
}

// seedReport pre-creates the (org, year) report row so overhead entries can
// reference it before the first calculation runs.
func (f *reportFixture) seedReport(year int) snowflake.ID {
	reportID := f.node.Generate()
	f.db.Create(&reportdomain.CorporateReport{
		ID:     reportID,
		OrgID:  f.orgID,
		Year:   year,
		Status: reportdomain.StatusDraft,
	})
	return reportID
}

func (f *reportFixture) seedOverhead(reportID snowflake.ID, category overheaddomain.Category, materialType *string, kg float64) {
	f.db.Create(&overheaddomain.CorporateOverheadEntry{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		ReportID:     reportID,
		Category:     category,
		MaterialType: materialType,
		CO2eKg:       kg,
	})
}

func (f *reportFixture) seedProductWithFootprint(scope1, scope2, scope3, total float64, units int64, year int) snowflake.ID {
	productID := f.node.Generate()
	f.db.Create(&productdomain.Product{ID: productID, OrgID: f.orgID, Name: "Widget"})
	f.db.Create(&footprintdomain.ProductFootprint{
		ID:              f.node.Generate(),
		OrgID:           f.orgID,
		ProductID:       productID,
		Status:          footprintdomain.StatusCompleted,
		ReferenceYear:   year,
		TotalPerUnitKg:  total,
		Scope1PerUnitKg: scope1,
		Scope2PerUnitKg: scope2,
		Scope3PerUnitKg: scope3,
		CreatedAt:       time.Date(year, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	f.db.Create(&productdomain.ProductionLog{
		ID:            f.node.Generate(),
		OrgID:         f.orgID,
		ProductID:     productID,
		ProducedAt:    time.Date(year, 7, 1, 0, 0, 0, 0, time.UTC),
		UnitsProduced: units,
	})
	return productID
}

func TestCalculate_EmptyOrganization(t *testing.T) {
	f := newReportFixture(t)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.Equal(t, 2025, result.Year)
	assert.Zero(t, result.Scope1)
	assert.Zero(t, result.Scope2)
	assert.Zero(t, result.Scope3.Total)
	assert.Zero(t, result.Total)
	assert.False(t, result.HasData)
}

func TestCalculate_InvalidInputs(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.CalculateCorporateEmissions(context.Background(), 0, 2025)
	assert.ErrorIs(t, err, reportdomain.ErrInvalidOrganization)

	_, err = f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 1999)
	assert.ErrorIs(t, err, reportdomain.ErrInvalidYear)

	_, err = f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2101)
	assert.ErrorIs(t, err, reportdomain.ErrInvalidYear)
}

func TestCalculate_Scope12FromActivitiesAndFleet(t *testing.T) {
	f := newReportFixture(t)

	f.seedFactor("electricity_grid", 0.233, "kwh", facilitydomain.ScopeTwo)
	f.seedFactor("natural_gas", 0.2, "kwh", facilitydomain.ScopeOne)

	f.seedActivity("electricity_grid", 1000, "kwh", facilitydomain.ScopeTwo, 2025)
	f.seedActivity("natural_gas", 100, "m3", facilitydomain.ScopeOne, 2025)
	// No factor for this one: it degrades to zero instead of failing the run.
	f.seedActivity("mystery_fuel", 500, "l", facilitydomain.ScopeOne, 2025)
	// Non-positive quantity is skipped.
	f.seedActivity("electricity_grid", -10, "kwh", facilitydomain.ScopeTwo, 2025)
	// Outside the reporting year.
	f.seedActivity("electricity_grid", 9999, "kwh", facilitydomain.ScopeTwo, 2024)

	// Fleet rows carry tonnes and convert to kg.
	f.seedFleet(2, fleetdomain.ClassScopeOne, 2025)
	f.seedFleet(0.5, fleetdomain.ClassScopeTwo, 2025)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)

	// natural_gas: 100 m3 * 10.55 kWh/m3 * 0.2 kg/kWh = 211, plus 2 t fleet.
	assert.InDelta(t, 211+2000, result.Scope1, 1e-6)
	// electricity: 1000 * 0.233 = 233, plus 0.5 t fleet.
	assert.InDelta(t, 233+500, result.Scope2, 1e-6)
	assert.True(t, result.HasData)
}

func TestCalculate_ProductsUseScope3PerUnitOnly(t *testing.T) {
	f := newReportFixture(t)

	// Per-unit total is 15 but only the scope 3 share (10) may enter the
	// corporate total; the rest is already counted at the facilities.
	f.seedProductWithFootprint(3, 2, 10, 15, 1, 2025)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.InDelta(t, 10, result.Scope3.Products, 1e-9)
	assert.InDelta(t, 10, result.Scope3.Total, 1e-9)
	assert.InDelta(t, 10, result.Total, 1e-9)
}

func TestCalculate_ProductionWeighting(t *testing.T) {
	f := newReportFixture(t)

	f.seedProductWithFootprint(0, 0, 21, 21, 250, 2025)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.InDelta(t, 5250, result.Scope3.Products, 1e-9)
}

func TestCalculate_NonPositiveUnitsSkipped(t *testing.T) {
	f := newReportFixture(t)

	productID := f.seedProductWithFootprint(0, 0, 10, 10, 100, 2025)
	f.db.Create(&productdomain.ProductionLog{
		ID:            f.node.Generate(),
		OrgID:         f.orgID,
		ProductID:     productID,
		ProducedAt:    time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		UnitsProduced: -5,
	})

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.InDelta(t, 1000, result.Scope3.Products, 1e-9)
}

func TestCalculate_OverheadCategories(t *testing.T) {
	f := newReportFixture(t)

	reportID := f.seedReport(2025)
	marketing := "paper"
	f.seedOverhead(reportID, overheaddomain.CategoryBusinessTravel, nil, 100)
	f.seedOverhead(reportID, overheaddomain.CategoryPurchasedServices, nil, 50)
	f.seedOverhead(reportID, overheaddomain.CategoryPurchasedServices, &marketing, 25)
	f.seedOverhead(reportID, overheaddomain.CategoryOperationalWaste, nil, 30)
	f.seedOverhead(reportID, overheaddomain.CategoryDownstreamLogistics, nil, 40)
	f.seedOverhead(reportID, overheaddomain.CategoryEmployeeCommuting, nil, 10)
	f.seedFleet(0.2, fleetdomain.ClassGreyFleet, 2025)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)

	scope3 := result.Scope3
	assert.InDelta(t, 100, scope3.BusinessTravelOverhead, 1e-9)
	assert.InDelta(t, 200, scope3.GreyFleet, 1e-9)
	// Merged bucket is the sum of its two sub-fields, counted once.
	assert.InDelta(t, 300, scope3.BusinessTravel, 1e-9)

	// A purchased_services entry with a material type is marketing, not
	// purchased services.
	assert.InDelta(t, 50, scope3.PurchasedServices, 1e-9)
	assert.InDelta(t, 25, scope3.MarketingMaterials, 1e-9)

	// Aliases mirror their sources.
	assert.Equal(t, scope3.OperationalWaste, scope3.Waste)
	assert.Equal(t, scope3.DownstreamLogistics, scope3.Logistics)
	assert.Equal(t, scope3.MarketingMaterials, scope3.Marketing)

	expectedTotal := 300.0 + 50 + 25 + 30 + 40 + 10
	assert.InDelta(t, expectedTotal, scope3.Total, 1e-9)
	assert.InDelta(t, expectedTotal, result.Total, 1e-9)
}

func TestCalculate_FacilityThenFleet(t *testing.T) {
	f := newReportFixture(t)

	f.seedFactor("heating_oil", 2.5, "l", facilitydomain.ScopeOne)
	f.seedActivity("heating_oil", 100, "l", facilitydomain.ScopeOne, 2025)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.InDelta(t, 250, result.Scope1, 1e-9)

	f.seedFleet(5, fleetdomain.ClassScopeOne, 2025)

	result, err = f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.InDelta(t, 5250, result.Scope1, 1e-9)
}

func TestCalculate_Deterministic(t *testing.T) {
	f := newReportFixture(t)

	f.seedFactor("electricity_grid", 0.233, "kwh", facilitydomain.ScopeTwo)
	f.seedActivity("electricity_grid", 1234.5, "kwh", facilitydomain.ScopeTwo, 2025)
	f.seedProductWithFootprint(1, 1, 7.5, 9.5, 42, 2025)
	f.seedFleet(1.25, fleetdomain.ClassScopeOne, 2025)
	f.seedFleet(0.75, fleetdomain.ClassGreyFleet, 2025)

	first, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	second, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	assert.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	assert.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestCalculate_PersistsReportRow(t *testing.T) {
	f := newReportFixture(t)

	f.seedProductWithFootprint(0, 0, 10, 10, 10, 2025)

	result, err := f.svc.CalculateCorporateEmissions(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)

	var report reportdomain.CorporateReport
	err = f.db.Where("org_id = ? AND year = ?", f.orgID, 2025).First(&report).Error
	assert.NoError(t, err)
	assert.InDelta(t, result.Total, report.TotalKg, 1e-9)
	assert.NotNil(t, report.CalculatedAt)

	var stored reportdomain.CorporateEmissions
	assert.NoError(t, json.Unmarshal(report.Breakdown, &stored))
	assert.InDelta(t, result.Scope3.Products, stored.Scope3.Products, 1e-9)
}

func TestFinalizeReport(t *testing.T) {
	f := newReportFixture(t)

	f.seedProductWithFootprint(0, 0, 10, 10, 10, 2025)

	report, err := f.svc.FinalizeReport(context.Background(), f.orgID, 2025)
	assert.NoError(t, err)
	assert.Equal(t, reportdomain.StatusFinalized, report.Status)
	assert.InDelta(t, 100, report.TotalKg, 1e-9)
}
