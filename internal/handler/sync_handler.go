package handler

import (
	"net/http"

	"github.com/Eursukkul/booking-microservice/meeting-service/config"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/labstack/echo/v4"
)

// SyncHandler publishes the deployment's fixed polling intervals.
type SyncHandler struct {
	polling config.PollingConfig
}

func NewSyncHandler(polling config.PollingConfig) *SyncHandler {
	return &SyncHandler{polling: polling}
}

func (h *SyncHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/sync/config", h.Config)
}

func (h *SyncHandler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.SyncConfigResponse{
		AdmissionIntervalMS: h.polling.Admission.Milliseconds(),
		ChatIntervalMS:      h.polling.Chat.Milliseconds(),
		QueueIntervalMS:     h.polling.Queue.Milliseconds(),
		CounterIntervalMS:   h.polling.Counter.Milliseconds(),
	})
}
