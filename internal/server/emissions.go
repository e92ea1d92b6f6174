package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCorporateEmissions recomputes the corporate totals for one
// (organization, year) and returns the full breakdown. The calculation is
// idempotent, so GET is safe to repeat.
func (s *Server) GetCorporateEmissions(c *gin.Context) {
	orgID, err := parseSnowflakeID(c.Param("org_id"))
	if err != nil {
		AbortWithError(c, newValidationError("org_id", "invalid_snowflake_id", "invalid organization id"))
		return
	}
	year, err := parseYear(c.Param("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	result, err := s.reportSvc.CalculateCorporateEmissions(c.Request.Context(), orgID, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) FinalizeCorporateReport(c *gin.Context) {
	orgID, err := parseSnowflakeID(c.Param("org_id"))
	if err != nil {
		AbortWithError(c, newValidationError("org_id", "invalid_snowflake_id", "invalid organization id"))
		return
	}
	year, err := parseYear(c.Param("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	report, err := s.reportSvc.FinalizeReport(c.Request.Context(), orgID, year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       report.ID.String(),
		"org_id":   report.OrgID.String(),
		"year":     report.Year,
		"status":   report.Status,
		"total_kg": report.TotalKg,
	})
}
