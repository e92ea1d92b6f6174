package server

import (
	"errors"
	"net/http"

	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	productdomain "github.com/carbontrail/carbontrail/internal/product/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createFootprintRequest struct {
	Status          string  `json:"status"`
	ReferenceYear   int     `json:"reference_year"`
	TotalPerUnitKg  float64 `json:"total_per_unit_kg"`
	Scope1PerUnitKg float64 `json:"scope1_per_unit_kg"`
	Scope2PerUnitKg float64 `json:"scope2_per_unit_kg"`
	Scope3PerUnitKg float64 `json:"scope3_per_unit_kg"`
}

func (s *Server) CreateProductFootprint(c *gin.Context) {
	productID, err := parseSnowflakeID(c.Param("product_id"))
	if err != nil {
		AbortWithError(c, newValidationError("product_id", "invalid_snowflake_id", "invalid product id"))
		return
	}

	var req createFootprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var product productdomain.Product
	err = s.db.WithContext(c.Request.Context()).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			AbortWithError(c, ErrNotFound)
			return
		}
		AbortWithError(c, err)
		return
	}

	status := footprintdomain.Status(req.Status)
	if req.Status == "" {
		status = footprintdomain.StatusDraft
	}

	footprint := &footprintdomain.ProductFootprint{
		OrgID:           product.OrgID,
		ProductID:       product.ID,
		Status:          status,
		ReferenceYear:   req.ReferenceYear,
		TotalPerUnitKg:  req.TotalPerUnitKg,
		Scope1PerUnitKg: req.Scope1PerUnitKg,
		Scope2PerUnitKg: req.Scope2PerUnitKg,
		Scope3PerUnitKg: req.Scope3PerUnitKg,
	}
	if err := s.footprintSvc.Create(c.Request.Context(), footprint); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, footprint)
}
