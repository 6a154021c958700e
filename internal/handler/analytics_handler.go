package handler

import (
	"net/http"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
)

type AnalyticsHandler struct {
	analytics service.AnalyticsService
}

func NewAnalyticsHandler(analytics service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) RegisterRoutes(e *echo.Echo, auth *middleware.Auth) {
	g := e.Group("/api/v1/analytics")
	g.GET("/summary", h.Summary, auth.Operator)
	g.GET("/recordings", h.Recordings, auth.Operator)
}

func (h *AnalyticsHandler) Summary(c echo.Context) error {
	summary, err := h.analytics.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToSummaryResponse(summary))
}

func (h *AnalyticsHandler) Recordings(c echo.Context) error {
	recs, err := h.analytics.Recordings(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]dto.RecordingResponse, len(recs))
	for i, r := range recs {
		resp[i] = dto.ToRecordingResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}
