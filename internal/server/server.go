package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/carbontrail/carbontrail/internal/allocation"
	allocationdomain "github.com/carbontrail/carbontrail/internal/allocation/domain"
	"github.com/carbontrail/carbontrail/internal/config"
	"github.com/carbontrail/carbontrail/internal/emissionfactor"
	"github.com/carbontrail/carbontrail/internal/footprint"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	"github.com/carbontrail/carbontrail/internal/observability"
	obsmiddleware "github.com/carbontrail/carbontrail/internal/observability/logger"
	obsmetrics "github.com/carbontrail/carbontrail/internal/observability/metrics"
	obstracing "github.com/carbontrail/carbontrail/internal/observability/tracing"
	"github.com/carbontrail/carbontrail/internal/report"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	emissionfactor.Module,
	footprint.Module,
	allocation.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	reportSvc     reportdomain.Service
	footprintSvc  footprintdomain.Service
	allocationSvc allocationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	ReportSvc     reportdomain.Service
	FootprintSvc  footprintdomain.Service
	AllocationSvc allocationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		reportSvc:     p.ReportSvc,
		footprintSvc:  p.FootprintSvc,
		allocationSvc: p.AllocationSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Corporate Reports --------
	api.GET("/organizations/:org_id/reports/:year/emissions", s.GetCorporateEmissions)
	api.POST("/organizations/:org_id/reports/:year/finalize", s.FinalizeCorporateReport)

	// -------- Product Footprints --------
	api.POST("/products/:product_id/footprints", s.CreateProductFootprint)

	// -------- Production-Mix Allocations --------
	api.PUT("/footprints/:footprint_id/allocations/:facility_id", s.UpsertAllocation)
	api.GET("/footprints/:footprint_id/allocations", s.ListAllocations)
}
