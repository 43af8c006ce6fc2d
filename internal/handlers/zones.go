package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const errMetricRequired = "query parameter 'metric' is required"

// @Summary      List zones
// @Tags         zones
// @Produce      json
// @Param        garden  query  string  false  "Only zones of this garden"  example(rooftop)
// @Success      200  {array}   models.Zone
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/zones [get]
func (h *Handler) listZones(c *gin.Context) {
	zones, err := h.services.ListZones(c.Request.Context(), c.Query("garden"))
	if err != nil {
		h.respondError(c, err, "failed to load zones", "zones_list_failed")
		return
	}
	c.JSON(http.StatusOK, zones)
}

// @Summary      Get zone
// @Description  Zone with its latest reading per metric and its open insights.
// @Tags         zones
// @Produce      json
// @Param        id   path      string  true  "Zone id"  example(rooftop-a)
// @Success      200  {object}  service.ZoneDetail
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/zones/{id} [get]
func (h *Handler) getZone(c *gin.Context) {
	id := c.Param("id")
	d, err := h.services.GetZone(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load zone", "zone_get_failed", "zone_id", id)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Zone readings
// @Description  Readings of one metric in a zone, oldest first. Without 'since' the last 24 hours are returned.
// @Tags         zones
// @Produce      json
// @Param        id      path   string  true   "Zone id"     example(rooftop-a)
// @Param        metric  query  string  true   "Metric key"  example(soil_moisture)
// @Param        since   query  string  false  "Lower bound (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Success      200  {object}  map[string]interface{}  "count, readings"
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/zones/{id}/readings [get]
func (h *Handler) zoneReadings(c *gin.Context) {
	id := c.Param("id")
	metric := strings.TrimSpace(c.Query("metric"))
	if metric == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errMetricRequired})
		return
	}

	var since time.Time
	if qs := c.Query("since"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		since = t
	}

	readings, err := h.services.ZoneReadings(c.Request.Context(), id, metric, since)
	if err != nil {
		h.respondError(c, err, "failed to load readings", "zone_readings_failed", "zone_id", id, "metric", metric)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}
