package handlers

import (
	"net/http"

	"garden_insights/internal/service"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string               `json:"status" example:"ok"`
	LastCycle *service.CycleReport `json:"lastCycle,omitempty"`
}

// @Summary      Health check
// @Description  Includes the most recent cycle report once one has finished.
// @Tags         system
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := healthResponse{Status: statusOK}
	if h.services.Cycles != nil {
		if report, ok := h.services.Cycles.LastReport(); ok {
			resp.LastCycle = &report
		}
	}
	c.JSON(http.StatusOK, resp)
}
