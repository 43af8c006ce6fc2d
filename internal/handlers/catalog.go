package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List metrics
// @Tags         metrics
// @Produce      json
// @Success      200  {array}   models.Metric
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/metrics [get]
func (h *Handler) listMetrics(c *gin.Context) {
	metrics, err := h.services.ListMetrics(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "failed to load metrics", "metrics_list_failed")
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// @Summary      Get metric
// @Tags         metrics
// @Produce      json
// @Param        key  path      string  true  "Metric key"  example(soil_moisture)
// @Success      200  {object}  models.Metric
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/metrics/{key} [get]
func (h *Handler) getMetric(c *gin.Context) {
	key := c.Param("key")
	m, err := h.services.GetMetric(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, err, "failed to load metric", "metric_get_failed", "key", key)
		return
	}
	c.JSON(http.StatusOK, m)
}
