package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vestra/internal/services"
)

// SchedulerHandler is the entry point for cron-driven jobs.
type SchedulerHandler struct {
	accrual services.AccrualServicer
}

// NewSchedulerHandler creates a new SchedulerHandler
func NewSchedulerHandler(accrual services.AccrualServicer) *SchedulerHandler {
	return &SchedulerHandler{accrual: accrual}
}

// ProcessDueDates runs the daily due-date batch over all investors. The run
// collects per-investor errors instead of aborting, so the response always
// reflects a full pass.
func (h *SchedulerHandler) ProcessDueDates(c *gin.Context) {
	result, err := h.accrual.BatchProcessAllDueDates(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
