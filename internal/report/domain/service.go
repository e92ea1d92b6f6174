package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Scope3Breakdown carries every Scope 3 category in kg CO2e. The category
// fields are always present, zero when empty. Waste, Logistics and Marketing
// are reporting aliases and always equal their source fields.
//
// Business travel is kept auditable as two sub-fields: explicitly entered
// overhead travel and automatically classified grey-fleet trips.
// BusinessTravel is always their sum and is the bucket counted in Total.
type Scope3Breakdown struct {
	Products float64 `json:"products"`

	BusinessTravel         float64 `json:"business_travel"`
	BusinessTravelOverhead float64 `json:"business_travel_overhead"`
	GreyFleet              float64 `json:"grey_fleet"`

	PurchasedServices   float64 `json:"purchased_services"`
	MarketingMaterials  float64 `json:"marketing_materials"`
	EmployeeCommuting   float64 `json:"employee_commuting"`
	CapitalGoods        float64 `json:"capital_goods"`
	OperationalWaste    float64 `json:"operational_waste"`
	DownstreamLogistics float64 `json:"downstream_logistics"`
	UpstreamTransport   float64 `json:"upstream_transport"`
	DownstreamTransport float64 `json:"downstream_transport"`
	UsePhase            float64 `json:"use_phase"`

	Waste     float64 `json:"waste"`
	Logistics float64 `json:"logistics"`
	Marketing float64 `json:"marketing"`

	Total float64 `json:"total"`
}

// CorporateEmissions is the full result of one calculation, in kg CO2e.
type CorporateEmissions struct {
	Year    int             `json:"year"`
	Scope1  float64         `json:"scope1"`
	Scope2  float64         `json:"scope2"`
	Scope3  Scope3Breakdown `json:"scope3"`
	Total   float64         `json:"total"`
	HasData bool            `json:"has_data"`
}

// Service computes corporate emissions. Every call is a fresh, idempotent
// recomputation over a point-in-time snapshot; unchanged inputs yield
// byte-identical output.
type Service interface {
	CalculateCorporateEmissions(ctx context.Context, orgID snowflake.ID, year int) (CorporateEmissions, error)
	FinalizeReport(ctx context.Context, orgID snowflake.ID, year int) (*CorporateReport, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidYear         = errors.New("invalid_year")
	ErrReportNotFound      = errors.New("report_not_found")
)
