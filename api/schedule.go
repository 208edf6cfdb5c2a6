package api

import (
	"net/http"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	service schedule.ScheduleUseCase
}

func NewScheduleHandler(service schedule.ScheduleUseCase) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

func (h *ScheduleHandler) Register(router *gin.RouterGroup) {
	router.POST("/schedule-all", h.scheduleAll)
}

// scheduleAll pages through every airline the vendor offers. A partial
// result is still a 200; complete=false and message say why it stopped.
func (h *ScheduleHandler) scheduleAll(c *gin.Context) {
	var query domain.ScheduleQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.service.AggregateAllAirlines(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
