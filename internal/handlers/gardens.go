package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      List gardens
// @Tags         gardens
// @Produce      json
// @Success      200  {array}   models.Garden
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/gardens [get]
func (h *Handler) listGardens(c *gin.Context) {
	gardens, err := h.services.ListGardens(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "failed to load gardens", "gardens_list_failed")
		return
	}
	c.JSON(http.StatusOK, gardens)
}

// @Summary      Get garden
// @Description  Garden with its zones, each carrying the latest reading per metric and its open insights.
// @Tags         gardens
// @Produce      json
// @Param        id   path      string  true  "Garden id"  example(rooftop)
// @Success      200  {object}  service.GardenDetail
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/gardens/{id} [get]
func (h *Handler) getGarden(c *gin.Context) {
	id := c.Param("id")
	d, err := h.services.GetGarden(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load garden", "garden_get_failed", "garden_id", id)
		return
	}
	c.JSON(http.StatusOK, d)
}
