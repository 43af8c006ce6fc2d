package handlers

import (
	"garden_insights/internal/logger"
	"garden_insights/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. A nil log
// discards output.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, log: log.Named("http")}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.registerAPIRoutes(router)

	// open insights feed, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerCatalogRoutes(api)
		h.registerGardenRoutes(api)
		h.registerZoneRoutes(api)
		h.registerInsightRoutes(api)
		api.POST("/cycles", h.runCycle)
	}
}

func (h *Handler) registerCatalogRoutes(api *gin.RouterGroup) {
	metrics := api.Group("/metrics")
	{
		metrics.GET("", h.listMetrics)
		metrics.GET("/:key", h.getMetric)
	}
}

func (h *Handler) registerGardenRoutes(api *gin.RouterGroup) {
	gardens := api.Group("/gardens")
	{
		gardens.GET("", h.listGardens)
		gardens.GET("/:id", h.getGarden)
	}
}

func (h *Handler) registerZoneRoutes(api *gin.RouterGroup) {
	zones := api.Group("/zones")
	{
		zones.GET("", h.listZones)
		zones.GET("/:id", h.getZone)
		// ?metric=soil_moisture&since=2024-06-01T00:00:00Z
		zones.GET("/:id/readings", h.zoneReadings)
	}
}

func (h *Handler) registerInsightRoutes(api *gin.RouterGroup) {
	api.GET("/insights", h.listInsights)
}
