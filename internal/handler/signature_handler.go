package handler

import (
	"net/http"

	"github.com/Eursukkul/booking-microservice/meeting-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/middleware"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/sdksig"
	"github.com/Eursukkul/booking-microservice/meeting-service/internal/service"
	"github.com/labstack/echo/v4"
)

type SignatureHandler struct {
	signatures service.SignatureService
}

func NewSignatureHandler(signatures service.SignatureService) *SignatureHandler {
	return &SignatureHandler{signatures: signatures}
}

func (h *SignatureHandler) RegisterRoutes(e *echo.Echo, auth *middleware.Auth) {
	e.POST("/api/v1/signature", h.Sign, auth.Participant)
}

func (h *SignatureHandler) Sign(c echo.Context) error {
	var req dto.SignatureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "role is required")
	}

	p, _ := middleware.PrincipalFrom(c)
	p.Email = req.Email

	res, err := h.signatures.Sign(c.Request().Context(), p, req.SessionNumber, sdksig.Role(*req.Role))
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.ToSignatureResponse(res.Signature)
	resp.MeetingID = res.MeetingID
	resp.Password = res.Password
	return c.JSON(http.StatusOK, resp)
}
