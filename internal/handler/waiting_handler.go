package handler

import (
	"context"
	"net/http"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/models"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
)

type WaitingHandler struct {
	admission service.AdmissionService
	access    service.AccessService
}

func NewWaitingHandler(admission service.AdmissionService, access service.AccessService) *WaitingHandler {
	return &WaitingHandler{admission: admission, access: access}
}

func (h *WaitingHandler) RegisterRoutes(e *echo.Echo, auth *middleware.Auth) {
	meetings := e.Group("/api/v1/meetings")
	meetings.POST("/:id/waiting", h.EnterWaiting, middleware.Visitor)
	meetings.GET("/:id/waiting/status", h.Status, middleware.Visitor)
	meetings.GET("/:id/waiting", h.Queue, auth.Operator)

	waiting := e.Group("/api/v1/waiting")
	waiting.POST("/:id/admit", h.Admit, auth.Operator)
	waiting.POST("/:id/reject", h.Reject, auth.Operator)

	e.GET("/api/v1/notifications/count", h.PendingCount, auth.Operator)
}

func (h *WaitingHandler) EnterWaiting(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}
	if _, err := authorizeMeeting(c, h.access, meetingID); err != nil {
		return err
	}

	var req dto.EnterWaitingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entry, err := h.admission.EnterWaiting(c.Request().Context(), meetingID, req.VisitorName, req.VisitorEmail)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToWaitingEntryResponse(entry))
}

// Status is polled by the waiting visitor until the entry is decided.
func (h *WaitingHandler) Status(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}
	if _, err := authorizeMeeting(c, h.access, meetingID); err != nil {
		return err
	}

	entry, err := h.admission.StatusFor(c.Request().Context(), meetingID, c.QueryParam("email"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToWaitingEntryResponse(entry))
}

func (h *WaitingHandler) Queue(c echo.Context) error {
	meetingID, err := parseID(c, "meeting")
	if err != nil {
		return err
	}

	var status *models.WaitingStatus
	if s := c.QueryParam("status"); s != "" {
		ws := models.WaitingStatus(s)
		status = &ws
	}

	entries, err := h.admission.Queue(c.Request().Context(), meetingID, status)
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.WaitingEntryResponse, len(entries))
	for i := range entries {
		resp[i] = dto.ToWaitingEntryResponse(&entries[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *WaitingHandler) Admit(c echo.Context) error {
	return h.decide(c, h.admission.Admit)
}

func (h *WaitingHandler) Reject(c echo.Context) error {
	return h.decide(c, h.admission.Reject)
}

func (h *WaitingHandler) decide(c echo.Context, fn func(ctx context.Context, entryID uint) (*models.WaitingEntry, error)) error {
	entryID, err := parseID(c, "waiting entry")
	if err != nil {
		return err
	}

	entry, err := fn(c.Request().Context(), entryID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToWaitingEntryResponse(entry))
}

func (h *WaitingHandler) PendingCount(c echo.Context) error {
	n, err := h.admission.PendingCount(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.PendingCountResponse{Pending: n})
}
