// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
	"stockbi/internal/domain/reports"
	"stockbi/internal/infrastructure/http/v1/handlers"
	"stockbi/internal/infrastructure/http/v1/middleware"
	"stockbi/pkg/logger"
)

// RouterConfig holds the services the API exposes.
type RouterConfig struct {
	Logger *logger.Logger

	Products *product.Service
	Ledger   *ledger.Service
	Engine   *aggregation.Engine
	Reports  *reports.Service

	// Checks are run by /health/ready, keyed by dependency name.
	Checks map[string]handlers.Checker

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: Recovery must see panics of everything below it and
	// ErrorHandler must run after handlers registered their errors.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Checks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	base := handlers.NewBaseHandler()

	registerCatalogRoutes(v1, base, cfg.Products)
	registerLedgerRoutes(v1.Group("/sales"), handlers.NewLedgerHandler(base, cfg.Ledger, ledger.KindSale))
	registerLedgerRoutes(v1.Group("/orders"), handlers.NewLedgerHandler(base, cfg.Ledger, ledger.KindOrder))
	registerAggregationRoutes(v1, base, cfg.Engine, cfg.Reports)

	return router
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, service *product.Service) {
	h := handlers.NewCatalogHandler(base, service)

	categories := rg.Group("/categories")
	categories.POST("", h.CreateCategory)
	categories.GET("", h.ListCategories)

	products := rg.Group("/products")
	products.POST("", h.CreateProduct)
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.PATCH("/:id", h.UpdateProduct)
	products.GET("/:id/valuation", h.GetValuation)
}

// registerLedgerRoutes registers the create/update/read routes shared by
// sales and orders.
func registerLedgerRoutes(group *gin.RouterGroup, h *handlers.LedgerHandler) {
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
}

func registerAggregationRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, engine *aggregation.Engine, reportService *reports.Service) {
	h := handlers.NewAggregationHandler(base, engine, reportService)

	aggregations := rg.Group("/aggregations")
	aggregations.POST("/run", h.Run)
	aggregations.GET("", h.List)
}
