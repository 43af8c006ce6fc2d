package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"garden_insights/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error" example:"zone \"x\": not found"`
}

// logAndJSONError writes userMsg with httpCode and logs err under logKey.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, errorResponse{Error: userMsg})
}

// respondError maps service errors to status codes. Client errors echo the
// message; anything else is logged and hidden behind internalMsg.
func (h *Handler) respondError(c *gin.Context, err error, internalMsg, logKey string, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrCycleInProgress):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, internalMsg, logKey, err, kv...)
	}
}

// parseQueryTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD" and
// normalises to UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time %q, expected RFC3339 (e.g. 2024-06-01T15:04:05Z), 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}
