package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type MeetingHandler struct {
	meetings      service.MeetingService
	access        service.AccessService
	bookingRepo   repository.BookingRepository
	publicBaseURL string
}

func NewMeetingHandler(meetings service.MeetingService, access service.AccessService, bookingRepo repository.BookingRepository, publicBaseURL string) *MeetingHandler {
	return &MeetingHandler{
		meetings:      meetings,
		access:        access,
		bookingRepo:   bookingRepo,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (h *MeetingHandler) RegisterRoutes(e *echo.Echo, auth *middleware.Auth) {
	bookings := e.Group("/api/v1/bookings")
	bookings.GET("/:id", h.GetBooking, auth.Operator)
	bookings.POST("/:id/meetings", h.StartMeeting, auth.Operator)
	bookings.POST("/:id/join-tokens", h.IssueJoinToken, auth.Operator)
	bookings.GET("/:id/join", h.Join, middleware.Visitor)

	meetings := e.Group("/api/v1/meetings")
	meetings.GET("/:id", h.GetMeeting, auth.Operator)
	meetings.POST("/:id/end", h.EndMeeting, auth.Operator)
}

func (h *MeetingHandler) GetBooking(c echo.Context) error {
	id, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	booking, err := h.bookingRepo.FindByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, service.ErrBookingNotFound.Error())
		}
		return err
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *MeetingHandler) StartMeeting(c echo.Context) error {
	bookingID, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	res, err := h.meetings.Start(c.Request().Context(), bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToStartMeetingResponse(res, h.joinURL(bookingID, res.JoinToken.Token)))
}

func (h *MeetingHandler) IssueJoinToken(c echo.Context) error {
	bookingID, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	token, err := h.access.Issue(c.Request().Context(), bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToJoinTokenResponse(token, h.joinURL(bookingID, token.Token)))
}

// Join validates the visitor's link and returns what the join page needs.
func (h *MeetingHandler) Join(c echo.Context) error {
	bookingID, err := parseID(c, "booking")
	if err != nil {
		return err
	}
	p, _ := middleware.PrincipalFrom(c)

	info, err := h.access.JoinInfo(c.Request().Context(), p.Token, bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToJoinInfoResponse(info))
}

func (h *MeetingHandler) GetMeeting(c echo.Context) error {
	id, err := parseID(c, "meeting")
	if err != nil {
		return err
	}

	meeting, err := h.meetings.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToMeetingResponse(meeting))
}

func (h *MeetingHandler) EndMeeting(c echo.Context) error {
	id, err := parseID(c, "meeting")
	if err != nil {
		return err
	}

	var req dto.EndMeetingRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	if req.RecordingURL != "" {
		if u, err := url.Parse(req.RecordingURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return echo.NewHTTPError(http.StatusBadRequest, "recording_url must be an http(s) URL")
		}
	}

	meeting, err := h.meetings.End(c.Request().Context(), id, req.RecordingURL)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ToMeetingResponse(meeting))
}

func (h *MeetingHandler) joinURL(bookingID uint, token string) string {
	return fmt.Sprintf("%s/join/%d?token=%s", h.publicBaseURL, bookingID, url.QueryEscape(token))
}
