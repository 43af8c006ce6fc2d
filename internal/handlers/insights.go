package handlers

import (
	"net/http"
	"strconv"

	"garden_insights/internal/models"

	"github.com/gin-gonic/gin"
)

const errLimitInvalid = "invalid 'limit'; use a positive integer"

// @Summary      List insights
// @Description  Newest first. Status defaults to all.
// @Tags         insights
// @Produce      json
// @Param        status  query  string  false  "Lifecycle filter"  Enums(active,resolved,all)
// @Param        zone    query  string  false  "Zone id"
// @Param        limit   query  int     false  "Page size (max 500)"
// @Success      200  {object}  map[string]interface{}  "count, insights"
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/insights [get]
func (h *Handler) listInsights(c *gin.Context) {
	f := models.InsightFilter{
		Status: c.Query("status"),
		ZoneID: c.Query("zone"),
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: errLimitInvalid})
			return
		}
		f.Limit = n
	}

	insights, err := h.services.ListInsights(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err, "failed to load insights", "insights_list_failed", "status", f.Status, "zone_id", f.ZoneID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(insights),
		"insights": insights,
	})
}
