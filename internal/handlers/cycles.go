package handlers

import (
	"context"
	"errors"
	"net/http"

	"garden_insights/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Run a cycle now
// @Description  Generates one reading per zone and metric, then evaluates and resolves insights. Returns 409 while another cycle is running.
// @Tags         cycles
// @Produce      json
// @Success      200  {object}  service.CycleReport
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  service.CycleReport
// @Router       /api/v1/cycles [post]
func (h *Handler) runCycle(c *gin.Context) {
	// a client hanging up must not abort a half written cycle
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := h.services.RunCycle(ctx)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, service.ErrCycleInProgress):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.Errorw("cycle_trigger_failed", "err", err)
		c.JSON(http.StatusInternalServerError, report)
	}
}
