package server

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/carbontrail/carbontrail/internal/allocation/domain"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type upsertAllocationRequest struct {
	ProductionShare   float64 `json:"production_share"`
	FacilityIntensity float64 `json:"facility_intensity"`
	DataSourceType    string  `json:"data_source_type"`
}

type listAllocationsResponse struct {
	Allocations              []allocationdomain.ProductionMixAllocation `json:"allocations"`
	Completeness             allocationdomain.Completeness              `json:"completeness"`
	WeightedAverageIntensity float64                                    `json:"weighted_average_intensity"`
}

// UpsertAllocation writes one facility's production share for a footprint.
// The service rejects writes that would push the footprint's total share past
// 100%, so PUT is the only write verb and replaces any existing row.
func (s *Server) UpsertAllocation(c *gin.Context) {
	footprintID, err := parseSnowflakeID(c.Param("footprint_id"))
	if err != nil {
		AbortWithError(c, newValidationError("footprint_id", "invalid_snowflake_id", "invalid footprint id"))
		return
	}
	facilityID, err := parseSnowflakeID(c.Param("facility_id"))
	if err != nil {
		AbortWithError(c, newValidationError("facility_id", "invalid_snowflake_id", "invalid facility id"))
		return
	}

	var req upsertAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	footprint, err := s.findFootprint(c, footprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sourceType := allocationdomain.DataSourceType(req.DataSourceType)
	if req.DataSourceType == "" {
		sourceType = allocationdomain.SourcePrimary
	}

	allocation := &allocationdomain.ProductionMixAllocation{
		OrgID:             footprint.OrgID,
		FootprintID:       footprintID,
		FacilityID:        facilityID,
		ProductionShare:   req.ProductionShare,
		FacilityIntensity: req.FacilityIntensity,
		DataSourceType:    sourceType,
	}
	if err := s.allocationSvc.Upsert(c.Request.Context(), allocation); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, allocation)
}

func (s *Server) ListAllocations(c *gin.Context) {
	footprintID, err := parseSnowflakeID(c.Param("footprint_id"))
	if err != nil {
		AbortWithError(c, newValidationError("footprint_id", "invalid_snowflake_id", "invalid footprint id"))
		return
	}

	footprint, err := s.findFootprint(c, footprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	allocations, err := s.allocationSvc.List(ctx, footprint.OrgID, footprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	completeness, err := s.allocationSvc.Completeness(ctx, footprint.OrgID, footprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	intensity, err := s.allocationSvc.WeightedAverageIntensity(ctx, footprint.OrgID, footprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, listAllocationsResponse{
		Allocations:              allocations,
		Completeness:             completeness,
		WeightedAverageIntensity: intensity,
	})
}

func (s *Server) findFootprint(c *gin.Context, footprintID snowflake.ID) (*footprintdomain.ProductFootprint, error) {
	var footprint footprintdomain.ProductFootprint
	err := s.db.WithContext(c.Request.Context()).
		Where("id = ?", footprintID).
		First(&footprint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &footprint, nil
}
